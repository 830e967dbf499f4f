package customer

import (
	"fmt"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// Segment is a customer size category.
type Segment string

// Customer segments.
const (
	SegmentEnterprise Segment = "enterprise"
	SegmentMidMarket  Segment = "mid_market"
	SegmentSMB        Segment = "smb"
	SegmentStartup    Segment = "startup"
)

// Segments lists every segment in descending ICP weight.
func Segments() []Segment {
	return []Segment{SegmentEnterprise, SegmentMidMarket, SegmentSMB, SegmentStartup}
}

// ParseSegment validates a segment name.
func ParseSegment(s string) (Segment, error) {
	switch seg := Segment(s); seg {
	case SegmentEnterprise, SegmentMidMarket, SegmentSMB, SegmentStartup:
		return seg, nil
	default:
		return "", fmt.Errorf("unknown segment %q: %w", s, domain.ErrInvalidRequest)
	}
}

// IsValid reports whether s is a known segment.
func (s Segment) IsValid() bool {
	_, err := ParseSegment(string(s))
	return err == nil
}

// icpWeight is the segment contribution to the ICP score.
func (s Segment) icpWeight() float64 {
	switch s {
	case SegmentEnterprise:
		return 40
	case SegmentMidMarket:
		return 30
	case SegmentSMB:
		return 20
	default:
		return 10
	}
}

// Engagement is how actively a customer interacts with campaigns.
type Engagement string

// Engagement levels.
const (
	EngagementHigh    Engagement = "high"
	EngagementMedium  Engagement = "medium"
	EngagementLow     Engagement = "low"
	EngagementDormant Engagement = "dormant"
)

// Engagements lists every level from most to least engaged.
func Engagements() []Engagement {
	return []Engagement{EngagementHigh, EngagementMedium, EngagementLow, EngagementDormant}
}

// ParseEngagement validates an engagement level name.
func ParseEngagement(s string) (Engagement, error) {
	switch e := Engagement(s); e {
	case EngagementHigh, EngagementMedium, EngagementLow, EngagementDormant:
		return e, nil
	default:
		return "", fmt.Errorf("unknown engagement level %q: %w", s, domain.ErrInvalidRequest)
	}
}

// Rank orders engagement levels: high=3, medium=2, low=1, dormant=0.
func (e Engagement) Rank() int {
	switch e {
	case EngagementHigh:
		return 3
	case EngagementMedium:
		return 2
	case EngagementLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether e ranks at or above min.
func (e Engagement) AtLeast(minLevel Engagement) bool { return e.Rank() >= minLevel.Rank() }

func (e Engagement) icpWeight() float64 {
	switch e {
	case EngagementHigh:
		return 30
	case EngagementMedium:
		return 20
	case EngagementLow:
		return 10
	default:
		return 0
	}
}
