package render

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bemPolicyOnce sync.Once
	bemPolicy     *bluemonday.Policy
)

// BEMPolicy is a user generated content policy that keeps the attributes
// BEM markup relies on: class, data-bem and other data-* attributes.
func BEMPolicy() *bluemonday.Policy {
	bemPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").Globally()
		policy.AllowDataAttributes()
		bemPolicy = policy
	})
	return bemPolicy
}
