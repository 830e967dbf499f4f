// Package customer models CRM customer profiles and their derived scores.
package customer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

// DocumentIDPrefix prefixes the document id of every indexed customer.
const DocumentIDPrefix = "customer_"

// MaxICPScore caps the ICP score.
const MaxICPScore = 100

var currency = message.NewPrinter(language.English)

// Profile carries the raw CRM attributes used to build a Customer.
type Profile struct {
	ID                    string
	Name                  string
	Email                 string
	CompanyID             string
	CompanyName           string
	Segment               Segment
	Engagement            Engagement
	LifetimeValue         float64
	LastEngagementAt      time.Time
	LastEngagementChannel string
	Industry              string
	CompanySize           int
	DealStage             string
	PainPoints            []string
	Interests             []string
	CampaignHistory       []string
}

// Customer is the CRM customer aggregate (immutable value object).
type Customer struct {
	p Profile
}

// New validates and creates a Customer.
func New(p Profile) (Customer, error) {
	if p.ID == "" {
		return Customer{}, fmt.Errorf("customer ID is required: %w", domain.ErrInvalidRequest)
	}
	if !p.Segment.IsValid() {
		return Customer{}, fmt.Errorf("customer %s: unknown segment %q: %w", p.ID, p.Segment, domain.ErrInvalidRequest)
	}
	if _, err := ParseEngagement(string(p.Engagement)); err != nil {
		return Customer{}, fmt.Errorf("customer %s: %w", p.ID, err)
	}
	if p.LifetimeValue < 0 {
		return Customer{}, fmt.Errorf("customer %s: negative lifetime value: %w", p.ID, domain.ErrInvalidRequest)
	}
	p.PainPoints = cloneStrings(p.PainPoints)
	p.Interests = cloneStrings(p.Interests)
	p.CampaignHistory = cloneStrings(p.CampaignHistory)
	return Customer{p: p}, nil
}

// ID returns the CRM identifier.
func (c *Customer) ID() string { return c.p.ID }

// Name returns the contact name.
func (c *Customer) Name() string { return c.p.Name }

// Email returns the contact email.
func (c *Customer) Email() string { return c.p.Email }

// CompanyName returns the account name.
func (c *Customer) CompanyName() string { return c.p.CompanyName }

// Segment returns the size category.
func (c *Customer) Segment() Segment { return c.p.Segment }

// Engagement returns the engagement level.
func (c *Customer) Engagement() Engagement { return c.p.Engagement }

// LifetimeValue returns the lifetime revenue in dollars.
func (c *Customer) LifetimeValue() float64 { return c.p.LifetimeValue }

// Industry returns the account industry.
func (c *Customer) Industry() string { return c.p.Industry }

// DealStage returns the pipeline stage, empty when not in pipeline.
func (c *Customer) DealStage() string { return c.p.DealStage }

// Profile returns a copy of all attributes.
func (c *Customer) Profile() Profile {
	p := c.p
	p.PainPoints = cloneStrings(p.PainPoints)
	p.Interests = cloneStrings(p.Interests)
	p.CampaignHistory = cloneStrings(p.CampaignHistory)
	return p
}

// DocumentID is the id of the document indexing this customer.
func (c *Customer) DocumentID() string { return DocumentIDPrefix + c.p.ID }

// ICPScore is the Ideal Customer Profile match score in [0, 100]:
// segment weight + engagement weight + lifetime value weight, capped.
// Computed on demand since engagement and lifetime value change.
func (c *Customer) ICPScore() float64 {
	score := c.p.Segment.icpWeight() + c.p.Engagement.icpWeight() + ltvWeight(c.p.LifetimeValue)
	if score > MaxICPScore {
		return MaxICPScore
	}
	return score
}

func ltvWeight(ltv float64) float64 {
	switch {
	case ltv > 100000:
		return 30
	case ltv > 50000:
		return 20
	case ltv > 10000:
		return 10
	default:
		return 0
	}
}

// DocumentMetadata returns the filterable attributes stored with the customer document.
func (c *Customer) DocumentMetadata() metadata.Metadata {
	return metadata.Customer{
		CustomerID:      c.p.ID,
		Segment:         string(c.p.Segment),
		EngagementLevel: string(c.p.Engagement),
		Industry:        c.p.Industry,
		ICPScore:        c.ICPScore(),
	}.Metadata()
}

// ContextString renders the profile as the descriptive text that gets embedded.
func (c *Customer) ContextString() string {
	p := c.p
	var b strings.Builder

	fmt.Fprintf(&b, "Customer: %s (%s)\n", p.Name, p.Email)
	fmt.Fprintf(&b, "Company: %s | Industry: %s | Size: %d employees\n", p.CompanyName, p.Industry, p.CompanySize)
	fmt.Fprintf(&b, "Segment: %s | Engagement: %s\n", p.Segment, p.Engagement)
	fmt.Fprintf(&b, "Lifetime Value: %s\n", FormatCurrency(p.LifetimeValue))
	fmt.Fprintf(&b, "ICP Match Score: %s/100\n", strconv.FormatFloat(c.ICPScore(), 'f', -1, 64))
	fmt.Fprintf(&b, "Last Engagement: %s\n", lastEngagement(p))
	fmt.Fprintf(&b, "Deal Stage: %s\n", orDefault(p.DealStage, "Not in pipeline"))
	fmt.Fprintf(&b, "Pain Points: %s\n", strings.Join(p.PainPoints, ", "))
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(p.Interests, ", "))
	history := "No previous campaigns"
	if len(p.CampaignHistory) > 0 {
		history = strings.Join(p.CampaignHistory, ", ")
	}
	fmt.Fprintf(&b, "Campaign History: %s", history)

	return b.String()
}

// FormatCurrency renders a dollar amount with thousands separators, e.g. $250,000.00.
func FormatCurrency(v float64) string {
	return currency.Sprintf("$%.2f", v)
}

func lastEngagement(p Profile) string {
	channel := orDefault(p.LastEngagementChannel, "unknown channel")
	if p.LastEngagementAt.IsZero() {
		return channel + " (date unknown)"
	}
	return channel + " on " + p.LastEngagementAt.UTC().Format(time.DateOnly)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
