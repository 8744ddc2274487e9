package components

// String returns the wire name for a StrategyKind.
func (k StrategyKind) String() string {
	names := StrategyNames()
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// StrategyNames returns the names for all strategies.
// The order matches the StrategyKind constants.
func StrategyNames() []string {
	return []string{
		"direct_attack",
		"flank",
		"retreat_heal",
		"wait_ambush",
		"swarm_coordinate",
		"hit_and_run",
		"circle_strafe",
		"underground_emerge",
	}
}

// StrategyCount returns the number of strategies.
func StrategyCount() int {
	return len(StrategyNames())
}

// ParseStrategy returns the StrategyKind for a name.
func ParseStrategy(name string) (StrategyKind, bool) {
	for i, n := range StrategyNames() {
		if n == name {
			return StrategyKind(i), true
		}
	}
	return StrategyDirectAttack, false
}

// String returns the name for a BehaviorTag.
func (t BehaviorTag) String() string {
	names := BehaviorTagNames()
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// BehaviorTagNames returns the names for all movement tags.
func BehaviorTagNames() []string {
	return []string{"normal", "avoiding", "coordinated", "flanking", "zigzag"}
}

// String returns the name for a SwarmRole.
func (r SwarmRole) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleFollower:
		return "follower"
	default:
		return ""
	}
}

// String returns the name for a FormationKind.
func (f FormationKind) String() string {
	switch f {
	case FormationWedge:
		return "wedge"
	case FormationCircle:
		return "circle"
	case FormationLine:
		return "line"
	default:
		return "unknown"
	}
}

// AbilityKinds returns every ability that can be scheduled.
func AbilityKinds() []AbilityKind {
	return []AbilityKind{
		AbilityHealer,
		AbilityTrapper,
		AbilityBerserker,
		AbilitySpawner,
		AbilityTeleporter,
		AbilityShield,
	}
}
