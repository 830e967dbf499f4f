package crm

import (
	"time"

	"github.com/nexusplanner/nexusrag/internal/domain/customer"
)

type seedFile struct {
	Customers []customerDTO `yaml:"customers"`
}

// customerDTO is the YAML shape of one CRM account.
// last_engagement_at wins over last_engagement_days_ago when both are set.
type customerDTO struct {
	ID                    string     `yaml:"id"`
	Name                  string     `yaml:"name"`
	Email                 string     `yaml:"email"`
	CompanyID             string     `yaml:"company_id"`
	CompanyName           string     `yaml:"company_name"`
	Segment               string     `yaml:"segment"`
	EngagementLevel       string     `yaml:"engagement_level"`
	LifetimeValue         float64    `yaml:"lifetime_value"`
	LastEngagementAt      *time.Time `yaml:"last_engagement_at"`
	LastEngagementDaysAgo *int       `yaml:"last_engagement_days_ago"`
	LastEngagementChannel string     `yaml:"last_engagement_channel"`
	Industry              string     `yaml:"industry"`
	CompanySize           int        `yaml:"company_size"`
	DealStage             string     `yaml:"deal_stage"`
	PainPoints            []string   `yaml:"pain_points"`
	Interests             []string   `yaml:"interests"`
	CampaignHistory       []string   `yaml:"campaign_history"`
}

func (d customerDTO) toDomain(now time.Time) (customer.Customer, error) {
	var last time.Time
	switch {
	case d.LastEngagementAt != nil:
		last = *d.LastEngagementAt
	case d.LastEngagementDaysAgo != nil:
		last = now.AddDate(0, 0, -*d.LastEngagementDaysAgo)
	}

	c, err := customer.New(customer.Profile{
		ID:                    d.ID,
		Name:                  d.Name,
		Email:                 d.Email,
		CompanyID:             d.CompanyID,
		CompanyName:           d.CompanyName,
		Segment:               customer.Segment(d.Segment),
		Engagement:            customer.Engagement(d.EngagementLevel),
		LifetimeValue:         d.LifetimeValue,
		LastEngagementAt:      last,
		LastEngagementChannel: d.LastEngagementChannel,
		Industry:              d.Industry,
		CompanySize:           d.CompanySize,
		DealStage:             d.DealStage,
		PainPoints:            d.PainPoints,
		Interests:             d.Interests,
		CampaignHistory:       d.CampaignHistory,
	})
	if err != nil {
		return customer.Customer{}, err //nolint:wrapcheck // caller adds position context
	}
	return c, nil
}
