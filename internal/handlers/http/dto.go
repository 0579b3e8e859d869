package http

import (
	"fmt"
	"net/http"
	"time"

	"conference/internal/core/domain"

	"github.com/gin-gonic/gin"
)

// timeRangeDTO is the wire representation of domain.TimeRange: an
// open-ended room omits upper.
type timeRangeDTO struct {
	Lower time.Time  `json:"lower" binding:"required"`
	Upper *time.Time `json:"upper"`
}

func (t timeRangeDTO) toDomain() (domain.TimeRange, error) {
	if t.Upper != nil && !t.Lower.Before(*t.Upper) {
		return domain.TimeRange{}, fmt.Errorf("time.lower must precede time.upper")
	}
	return domain.TimeRange{Lower: t.Lower, Upper: t.Upper}, nil
}

func timeRangeDTOFrom(t domain.TimeRange) timeRangeDTO {
	return timeRangeDTO{Lower: t.Lower, Upper: t.Upper}
}

type roomDTO struct {
	ID               string         `json:"id"`
	ClassroomID      string         `json:"classroom_id"`
	Audience         string         `json:"audience"`
	Time             timeRangeDTO   `json:"time"`
	RTCSharingPolicy string         `json:"rtc_sharing_policy"`
	Reserve          *int           `json:"reserve,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`
	BackendID        *string        `json:"backend_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func roomDTOFrom(r *domain.Room) roomDTO {
	dto := roomDTO{
		ID:               r.ID.String(),
		ClassroomID:      r.ClassroomID.String(),
		Audience:         r.Audience,
		Time:             timeRangeDTOFrom(r.Time),
		RTCSharingPolicy: string(r.RTCSharingPolicy),
		Reserve:          r.Reserve,
		Tags:             r.Tags,
		CreatedAt:        r.CreatedAt,
	}
	if r.BackendID != nil {
		s := r.BackendID.String()
		dto.BackendID = &s
	}
	return dto
}

type rtcDTO struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func rtcDTOFrom(r *domain.RTC) rtcDTO {
	return rtcDTO{
		ID:        r.ID.String(),
		RoomID:    r.RoomID.String(),
		CreatedBy: r.CreatedBy.String(),
		CreatedAt: r.CreatedAt,
	}
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"type":   string(domain.ErrMessageParsingFailed),
		"title":  err.Error(),
		"status": http.StatusBadRequest,
	})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"type":   string(domain.ErrAuthorizationFailed),
		"title":  "agent identity required",
		"status": http.StatusUnauthorized,
	})
}
