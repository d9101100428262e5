package common

import (
	"fmt"

	"github.com/trellis-ml/trellis/pkg/api/types/jobs"
	kflag "github.com/trellis-ml/trellis/pkg/commandline/flag"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ParseResources reads repeatable KEY=VALUE flags into job resource sizing,
// layered over defaults (flag values win).
func ParseResources(defaults jobs.Resources, params kflag.Params) (jobs.Resources, error) {
	ret := jobs.Resources{}
	for k, v := range defaults {
		ret[k] = v
	}

	for _, p := range params {
		q, err := resource.ParseQuantity(p.Value)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %s is not a quantity: %w", p.Key, p.Value, err)
		}
		ret[p.Key] = q
	}

	return ret, nil
}

// MergeParams layers KEY=VALUE flags over default string params (flag values win).
func MergeParams(defaults map[string]string, params kflag.Params) map[string]string {
	ret := map[string]string{}
	for k, v := range defaults {
		ret[k] = v
	}
	for _, p := range params {
		ret[p.Key] = p.Value
	}
	return ret
}
