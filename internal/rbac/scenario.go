package rbac

import (
	"errors"
)

// Scenario is a named expected decision asserted at deploy time, e.g.
// "donor must not reach the admin hub". Exactly one of Permission or Route
// is set.
type Scenario struct {
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	Permission Permission `json:"permission,omitempty"`
	Route      string     `json:"route,omitempty"`
	Expect     bool       `json:"expect"`
}

// ScenarioResult records the outcome of a Scenario.
type ScenarioResult struct {
	Scenario Scenario `json:"scenario"`
	Decision Decision `json:"decision"`
	Passed   bool     `json:"passed"`
	Err      string   `json:"error,omitempty"`
}

// RunScenarios evaluates every scenario. Unknown roles evaluate as denials so
// an expected denial still passes; unknown permissions and malformed scenarios
// always fail.
func (a *Authorizer) RunScenarios(scenarios []Scenario) []ScenarioResult {
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, a.runScenario(sc))
	}
	return results
}

func (a *Authorizer) runScenario(sc Scenario) ScenarioResult {
	res := ScenarioResult{Scenario: sc}
	var (
		decision Decision
		err      error
	)
	switch {
	case sc.Permission != "" && sc.Route != "":
		res.Err = "scenario must target either a permission or a route"
		return res
	case sc.Permission != "":
		decision, err = a.Check(sc.Role, sc.Permission)
	case sc.Route != "":
		decision, err = a.AuthorizeRoute(sc.Role, sc.Route)
	default:
		res.Err = "scenario has no permission or route"
		return res
	}
	res.Decision = decision
	if err != nil && !errors.Is(err, ErrUnknownRole) {
		res.Err = err.Error()
		return res
	}
	res.Passed = decision.Allowed == sc.Expect
	return res
}
