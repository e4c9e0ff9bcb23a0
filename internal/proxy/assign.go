package proxy

import (
	"fmt"

	"github.com/scanherd/scanherd/internal/model"
)

// Assign binds proxy descriptors to identities by deterministic round-robin:
// identity i receives rawProxies[i mod len(rawProxies)], so multiple
// identities may legitimately share one proxy when the list is shorter than
// the identity list.
//
// When useProxies is false or the list is empty, every identity keeps a nil
// descriptor (direct connection); that is not an error. A proxy string that
// fails to parse falls back to direct for that identity and contributes a
// warning error to the returned slice; assignment never aborts.
//
// Design decision: Cyclic reuse rather than random assignment keeps the
// identity-to-proxy binding reproducible across runs with the same inputs,
// which makes proxy-specific failures attributable.
func Assign(identities []*model.Identity, rawProxies []string, useProxies bool) []error {
	if !useProxies || len(rawProxies) == 0 {
		for _, identity := range identities {
			identity.Proxy = nil
		}
		return nil
	}

	var errs []error
	for i, identity := range identities {
		raw := rawProxies[i%len(rawProxies)]

		descriptor, err := Parse(raw)
		if err != nil {
			identity.Proxy = nil
			errs = append(errs, fmt.Errorf("%s: proxy entry %d unusable, falling back to direct: %w",
				identity, i%len(rawProxies), err))
			continue
		}
		identity.Proxy = descriptor
	}
	return errs
}
