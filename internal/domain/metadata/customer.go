package metadata

// Well-known metadata keys for customer documents.
const (
	KeyType            = "type"
	KeyCustomerID      = "customer_id"
	KeySegment         = "segment"
	KeyEngagementLevel = "engagement_level"
	KeyIndustry        = "industry"
	KeyICPScore        = "icp_score"

	// TypeCustomer is the KeyType value of customer profile documents.
	TypeCustomer = "customer"
)

// Customer is the typed metadata variant for customer profile documents.
type Customer struct {
	CustomerID      string
	Segment         string
	EngagementLevel string
	Industry        string
	ICPScore        float64
}

// Metadata converts the typed variant into the generic filterable map.
func (c Customer) Metadata() Metadata {
	return Metadata{
		KeyType:            String(TypeCustomer),
		KeyCustomerID:      String(c.CustomerID),
		KeySegment:         String(c.Segment),
		KeyEngagementLevel: String(c.EngagementLevel),
		KeyIndustry:        String(c.Industry),
		KeyICPScore:        Number(c.ICPScore),
	}
}

// CustomerFrom reads the typed variant back. ok is false unless the document
// is tagged as a customer and carries a customer_id.
func CustomerFrom(m Metadata) (Customer, bool) {
	typ, _ := m[KeyType].Str()
	if typ != TypeCustomer {
		return Customer{}, false
	}
	id, ok := m[KeyCustomerID].Str()
	if !ok || id == "" {
		return Customer{}, false
	}
	c := Customer{CustomerID: id}
	c.Segment, _ = m[KeySegment].Str()
	c.EngagementLevel, _ = m[KeyEngagementLevel].Str()
	c.Industry, _ = m[KeyIndustry].Str()
	c.ICPScore, _ = m[KeyICPScore].Num()
	return c, true
}
