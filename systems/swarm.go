package systems

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// SwarmGroup is the proximity group around one agent, recomputed every tick.
type SwarmGroup struct {
	GroupID     int                 // leader id
	Members     []*components.Agent // sorted by id, leader included
	Leader      *components.Agent
	Formation   components.FormationKind
	TargetAngle float64         // leader heading in radians
	LeaderDir   components.Vec2 // unit leader heading
}

// MemberIDs returns the member ids in ascending order.
func (g *SwarmGroup) MemberIDs() []components.AgentID {
	ids := make([]components.AgentID, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// SwarmSteer is the coordinator's direction for one member.
type SwarmSteer struct {
	Direction components.Vec2
	Role      components.SwarmRole
	Group     *SwarmGroup
}

// SwarmCoordinator forms groups, elects leaders and lays out formations.
type SwarmCoordinator struct {
	cfg        config.SwarmConfig
	wedgeAngle float64

	neighbors []Neighbor
}

// NewSwarmCoordinator creates a coordinator.
func NewSwarmCoordinator(cfg config.SwarmConfig) *SwarmCoordinator {
	return &SwarmCoordinator{
		cfg:        cfg,
		wedgeAngle: cfg.WedgeAngleDeg * math.Pi / 180,
	}
}

// ComputeGroup collects the live agents within the swarm radius of agent.
// Returns nil when the agent has no neighbors.
//
// Groups are computed per agent, not as connected components. In a chain
// A-B-C where A and C are out of each other's range, B sees all three while
// A and C each see only B, so the members can elect different leaders and
// carry different SwarmGroupIDs in the same tick.
func (s *SwarmCoordinator) ComputeGroup(f *Frame, agent *components.Agent) *SwarmGroup {
	if !agent.Alive() {
		return nil
	}
	s.neighbors = f.Neighbors(s.neighbors[:0], agent, s.cfg.Radius)
	if len(s.neighbors) == 0 {
		return nil
	}

	members := make([]*components.Agent, 0, len(s.neighbors)+1)
	members = append(members, agent)
	for _, n := range s.neighbors {
		members = append(members, n.Agent)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	// Strictly higher health wins; members are id-sorted so ties keep the lowest id.
	leader := members[0]
	for _, m := range members[1:] {
		if m.Health > leader.Health {
			leader = m
		}
	}

	g := &SwarmGroup{
		GroupID:   int(leader.ID),
		Members:   members,
		Leader:    leader,
		Formation: s.formationFor(len(members)),
	}
	dir := unit(r2.Sub(f.Target, leader.Position), unitX)
	if f.IsHot(leader.Position) {
		dir = rotate(dir, math.Pi/2)
	}
	g.LeaderDir = dir
	g.TargetAngle = heading(dir)
	return g
}

// formationFor picks the formation for a group size.
func (s *SwarmCoordinator) formationFor(size int) components.FormationKind {
	switch {
	case size <= s.cfg.LineMaxMembers:
		return components.FormationLine
	case size <= s.cfg.WedgeMaxMembers:
		return components.FormationWedge
	default:
		return components.FormationCircle
	}
}

// Steer returns the group-relative direction for agent.
func (s *SwarmCoordinator) Steer(g *SwarmGroup, agent *components.Agent) SwarmSteer {
	if agent == g.Leader || agent.ID == g.Leader.ID {
		return SwarmSteer{Direction: g.LeaderDir, Role: components.RoleLeader, Group: g}
	}
	rank, followers := 0, len(g.Members)-1
	for _, m := range g.Members {
		if m.ID == g.Leader.ID {
			continue
		}
		rank++
		if m.ID == agent.ID {
			break
		}
	}
	slot := r2.Add(g.Leader.Position, s.Offset(g.Formation, rank, followers, g.TargetAngle))
	return SwarmSteer{
		Direction: unit(r2.Sub(slot, agent.Position), g.LeaderDir),
		Role:      components.RoleFollower,
		Group:     g,
	}
}

// Offset returns the world-space slot of follower rank (1-based) relative to the
// leader, for a leader heading of angle radians.
func (s *SwarmCoordinator) Offset(kind components.FormationKind, rank, followers int, angle float64) components.Vec2 {
	if rank < 1 {
		rank = 1
	}
	back := angle + math.Pi
	switch kind {
	case components.FormationWedge:
		// Alternate sides of the cone; each pair steps one row back.
		row := (rank + 1) / 2
		side := 1.0
		if rank%2 == 0 {
			side = -1
		}
		return components.Polar(back+side*s.wedgeAngle, s.cfg.Spacing*float64(row))
	case components.FormationCircle:
		n := max(followers, 1)
		radius := s.cfg.Spacing * math.Max(1, float64(n)/3)
		return components.Polar(angle+2*math.Pi*float64(rank-1)/float64(n), radius)
	default:
		return components.Polar(back, s.cfg.Spacing*float64(rank))
	}
}
