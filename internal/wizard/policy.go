package wizard

import "fmt"

// FetchFailurePolicy decides what the wizard shows when availability or slot
// fetches fail.
type FetchFailurePolicy string

const (
	// PolicyUseDefaults substitutes all-days-active and the 09:00-17:00 ladder.
	// An empty weekly availability response is treated as a failure too.
	PolicyUseDefaults FetchFailurePolicy = "useDefaults"
	// PolicyShowError keeps the lists empty and raises an error notice.
	PolicyShowError FetchFailurePolicy = "showError"
)

func ParseFetchFailurePolicy(v string) (FetchFailurePolicy, error) {
	switch FetchFailurePolicy(v) {
	case PolicyUseDefaults, PolicyShowError:
		return FetchFailurePolicy(v), nil
	case "":
		return PolicyUseDefaults, nil
	default:
		return "", fmt.Errorf("unknown fetch failure policy %q", v)
	}
}
