package http

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
)

// number accepts a JSON number or a numeric string. Anything else leaves
// value nil and marks the field invalid so the handler can name it.
type number struct {
	value   *float64
	invalid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	n.value, n.invalid = nil, false
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			n.invalid = true
			return nil
		}
		n.value = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		n.invalid = true
		return nil
	}
	n.value = &f
	return nil
}

type createDonationBody struct {
	UserID        *string `json:"userId"`
	Amount        number  `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	ProjectID     string  `json:"projectId"`
	DepartmentID  string  `json:"departmentId"`
	Anonymous     bool    `json:"anonymous"`
}

type photoBody struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// photosBody accepts either photo objects or bare URL strings.
type photosBody []photoBody

func (p *photosBody) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		// anything that is not a list is treated as no photos
		*p = nil
		return nil
	}
	out := make(photosBody, 0, len(raw))
	for _, item := range raw {
		var url string
		if err := json.Unmarshal(item, &url); err == nil {
			out = append(out, photoBody{URL: url})
			continue
		}
		var pb photoBody
		if err := json.Unmarshal(item, &pb); err == nil {
			out = append(out, pb)
		}
	}
	*p = out
	return nil
}

type createIssueBody struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Location    *struct {
		Lat number `json:"lat"`
		Lng number `json:"lng"`
	} `json:"location"`
	ReportedBy   *string    `json:"reportedBy"`
	DepartmentID string     `json:"departmentId"`
	Photos       photosBody `json:"photos"`
}

// invalidField names the first coordinate that was present but not numeric.
func (b createIssueBody) invalidField() string {
	switch {
	case b.Location == nil:
		return ""
	case b.Location.Lat.invalid:
		return "location.lat"
	case b.Location.Lng.invalid:
		return "location.lng"
	}
	return ""
}

func (b createIssueBody) photos() []domain.Photo {
	out := make([]domain.Photo, 0, len(b.Photos))
	for _, p := range b.Photos {
		out = append(out, domain.Photo{URL: p.URL, Description: p.Description})
	}
	return out
}
