package planning

import (
	"context"

	"github.com/nexusplanner/nexusrag/internal/usecase/relevance"
)

// CustomerFinder selects customers relevant to a campaign.
type CustomerFinder interface {
	SearchCustomersForCampaign(ctx context.Context, q relevance.CampaignQuery) (relevance.CampaignResult, error)
}
