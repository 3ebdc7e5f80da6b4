package plan

// Plan identifies a subscription tier. The set is closed: any value outside
// it is treated as zero quota, never as unlimited.
type Plan string

const (
	Free     Plan = "free"
	Pro      Plan = "pro"
	UltraPro Plan = "ultra_pro"
)

// Monthly quota of generation actions per plan.
const (
	FreeQuota     int64 = 0
	ProQuota      int64 = 500
	UltraProQuota int64 = 2000
)

// Valid reports whether p belongs to the closed plan set.
func (p Plan) Valid() bool {
	switch p {
	case Free, Pro, UltraPro:
		return true
	}
	return false
}

func (p Plan) String() string {
	return string(p)
}

// Quota returns the monthly action quota for a plan.
// Unknown plans return 0 and ErrInvalidPlan so callers can log the anomaly;
// granting quota for an unrecognized plan is never acceptable.
func Quota(p Plan) (int64, error) {
	switch p {
	case Free:
		return FreeQuota, nil
	case Pro:
		return ProQuota, nil
	case UltraPro:
		return UltraProQuota, nil
	}
	return 0, ErrInvalidPlan
}
