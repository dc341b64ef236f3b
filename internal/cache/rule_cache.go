package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
)

const defaultRuleSetTTL = 30 * time.Second

// RuleSetCache stores active contract rule sets per (company, scope) so that
// pricing a multi-item order hits the store once. Entries are short-lived;
// rule edits are administrative and tolerate eventual consistency.
type RuleSetCache interface {
	Get(companyID snowflake.ID, scope ratedomain.RuleScope) ([]ratedomain.RateRule, bool)
	Set(companyID snowflake.ID, scope ratedomain.RuleScope, rules []ratedomain.RateRule)
	Invalidate(companyID snowflake.ID, scope ratedomain.RuleScope)
}

type ruleSetKey struct {
	companyID snowflake.ID
	scope     ratedomain.RuleScope
}

type ruleSetCache struct {
	rules Cache[ruleSetKey, []ratedomain.RateRule]
	ttl   time.Duration
}

// NewRuleSetCache returns an in-memory rule set cache.
func NewRuleSetCache() RuleSetCache {
	return &ruleSetCache{
		rules: NewTTLCache[ruleSetKey, []ratedomain.RateRule](),
		ttl:   defaultRuleSetTTL,
	}
}

func (c *ruleSetCache) Get(companyID snowflake.ID, scope ratedomain.RuleScope) ([]ratedomain.RateRule, bool) {
	return c.rules.Get(ruleSetKey{companyID: companyID, scope: scope})
}

func (c *ruleSetCache) Set(companyID snowflake.ID, scope ratedomain.RuleScope, rules []ratedomain.RateRule) {
	c.rules.Set(ruleSetKey{companyID: companyID, scope: scope}, rules, c.ttl)
}

func (c *ruleSetCache) Invalidate(companyID snowflake.ID, scope ratedomain.RuleScope) {
	c.rules.Delete(ruleSetKey{companyID: companyID, scope: scope})
}
