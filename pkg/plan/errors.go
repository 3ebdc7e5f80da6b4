package plan

import "errors"

var ErrInvalidPlan = errors.New("plan is not in the known plan set")
