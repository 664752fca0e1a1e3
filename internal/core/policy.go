package core

import (
	"context"
	"strings"

	"mycoledger/internal/config"
	"mycoledger/pkg/domain"
)

// Authorizer decides the sensitive operations that carry a caller. Returning
// a non-nil error aborts the operation before anything is written.
type Authorizer interface {
	AuthorizeFunding(ctx context.Context, caller domain.Principal, network domain.Network) error
	AuthorizeSuccessRate(ctx context.Context, caller domain.Principal, network domain.Network, inoculation domain.Inoculation) error
}

// AllowAll permits every caller.
type AllowAll struct{}

// AuthorizeFunding always succeeds.
func (AllowAll) AuthorizeFunding(context.Context, domain.Principal, domain.Network) error {
	return nil
}

// AuthorizeSuccessRate always succeeds.
func (AllowAll) AuthorizeSuccessRate(context.Context, domain.Principal, domain.Network, domain.Inoculation) error {
	return nil
}

// StewardPolicy requires an identified caller for funding, and restricts
// success-rate updates to the network's steward or the inoculation's performer.
type StewardPolicy struct{}

// AuthorizeFunding rejects anonymous callers. Any identified caller may fund
// any network.
func (StewardPolicy) AuthorizeFunding(_ context.Context, caller domain.Principal, _ domain.Network) error {
	if anonymous(caller) {
		return domain.Unauthorized(caller, "funding requires an identified caller")
	}
	return nil
}

// AuthorizeSuccessRate admits the network's steward and the inoculation's
// performer.
func (StewardPolicy) AuthorizeSuccessRate(_ context.Context, caller domain.Principal, network domain.Network, inoculation domain.Inoculation) error {
	if anonymous(caller) {
		return domain.Unauthorized(caller, "success-rate updates require an identified caller")
	}
	if caller == network.Steward || caller == inoculation.PerformedBy {
		return nil
	}
	return domain.Unauthorized(caller, "is neither the network steward nor the inoculation performer")
}

func anonymous(p domain.Principal) bool {
	return strings.TrimSpace(string(p)) == ""
}

// PolicyFor maps a configured policy mode to an Authorizer. Unknown modes
// fall back to AllowAll; config validation rejects them earlier.
func PolicyFor(mode string) Authorizer {
	if mode == config.PolicySteward {
		return StewardPolicy{}
	}
	return AllowAll{}
}
