package mot

// LifecyclePolicy decides when an active track is lost
type LifecyclePolicy struct {
	// Young tracks (age below this threshold) are dropped when their visibility is poor. Default is 4
	AgeThreshold int
	// Max number of consecutive frames without a match. Default is 0: any miss is fatal
	MaxTimeInvisible int
	// Visibility ratio (visible frames / age) young tracks must reach. Default is 0.6
	MinVisibility float64
}

// DefaultLifecyclePolicy returns default policy
func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		AgeThreshold:     4,
		MaxTimeInvisible: 0,
		MinVisibility:    0.6,
	}
}

// ShouldDelete evaluates the deletion predicate:
//
//	(age < AgeThreshold AND visibility < MinVisibility) OR (timeInvisible > MaxTimeInvisible)
//
// Tracks which have not aged yet are kept: they were born in the current frame.
func (policy LifecyclePolicy) ShouldDelete(track *Track) bool {
	if track.age == 0 {
		return false
	}
	visibility := track.Visibility()
	if track.age < policy.AgeThreshold && visibility < policy.MinVisibility {
		return true
	}
	return track.timeInvisible > policy.MaxTimeInvisible
}
