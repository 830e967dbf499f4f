package customer

// Stats summarizes a customer base.
type Stats struct {
	TotalCustomers int
	BySegment      map[Segment]int
	ByEngagement   map[Engagement]int
	TotalLTV       float64
	AvgLTV         float64
}

// Summarize counts customers per segment and engagement level. Every known
// segment and level is present, zero when empty.
func Summarize(customers []Customer) Stats {
	st := Stats{
		TotalCustomers: len(customers),
		BySegment:      make(map[Segment]int),
		ByEngagement:   make(map[Engagement]int),
	}
	for _, s := range Segments() {
		st.BySegment[s] = 0
	}
	for _, e := range Engagements() {
		st.ByEngagement[e] = 0
	}
	for i := range customers {
		st.BySegment[customers[i].Segment()]++
		st.ByEngagement[customers[i].Engagement()]++
		st.TotalLTV += customers[i].LifetimeValue()
	}
	if st.TotalCustomers > 0 {
		st.AvgLTV = st.TotalLTV / float64(st.TotalCustomers)
	}
	return st
}
