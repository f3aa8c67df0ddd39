// Damage math: per-channel output, armor mitigation, commander and
// research modifiers, and proportional casualty distribution.
package combat

import (
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

const (
	// armorCurveK shapes mitigation: applied = output * k / (k + armor).
	// Zero armor passes damage through untouched.
	armorCurveK = 10.0

	// siegeBuildingMult multiplies siege unit output against buildings.
	siegeBuildingMult = 2.0

	// entrenchBaseMult reduces damage taken by an entrenched army.
	entrenchBaseMult = 0.70
	// entrenchFortifiedMult applies once fortification is researched.
	entrenchFortifiedMult = 0.60

	// leadershipStep scales attacker output per commander leadership level.
	leadershipStep = 0.05
	// tacticsStep reduces incoming damage per commander tactics level.
	tacticsStep = 0.03
	// tacticsFloor caps how much tactics can mitigate.
	tacticsFloor = 0.60

	// villagerHP is the effective toughness of one villager under fire.
	villagerHP = 20
)

// channelOutput sums one side's raw output per damage channel,
// applying research bonuses for the owning player.
func channelOutput(p *world.Player, comp map[world.UnitType]int, rangedOnly bool) [3]float64 {
	var out [3]float64
	for u, n := range comp {
		if n <= 0 {
			continue
		}
		stats := world.UnitStatsFor(u)
		if rangedOnly && !stats.Ranged {
			continue
		}
		for _, ch := range world.AllChannels {
			out[ch] += float64(stats.Attack[ch] * n)
		}
	}
	if p != nil {
		if p.HasCompleted(world.ResearchSwordsmithing) {
			out[world.ChannelMelee] *= 1.15
		}
		if p.HasCompleted(world.ResearchFletching) {
			out[world.ChannelPierce] *= 1.15
		}
	}
	return out
}

// averageArmor returns one side's headcount-weighted armor per channel,
// with the armor plating research bonus applied.
func averageArmor(p *world.Player, comp map[world.UnitType]int) [3]float64 {
	var armor [3]float64
	total := 0
	for u, n := range comp {
		if n <= 0 {
			continue
		}
		stats := world.UnitStatsFor(u)
		for _, ch := range world.AllChannels {
			armor[ch] += float64(stats.Armor[ch] * n)
		}
		total += n
	}
	if total == 0 {
		return armor
	}
	bonus := 0.0
	if p != nil && p.HasCompleted(world.ResearchArmorPlating) {
		bonus = 2.0
	}
	for i := range armor {
		armor[i] = armor[i]/float64(total) + bonus
	}
	return armor
}

// mitigate applies the armor curve channel by channel and sums the
// damage that gets through.
func mitigate(output [3]float64, armor [3]float64) float64 {
	total := 0.0
	for _, ch := range world.AllChannels {
		if output[ch] <= 0 {
			continue
		}
		total += output[ch] * armorCurveK / (armorCurveK + armor[ch])
	}
	return total
}

// commanderOf resolves an army's commander, or nil.
func commanderOf(ctx *sim.Context, a *world.Army) *world.Commander {
	if a == nil || a.CommanderID == 0 {
		return nil
	}
	return ctx.State.Commanders[a.CommanderID]
}

// offenseMult returns a side's output multiplier from its commander.
func offenseMult(c *world.Commander) float64 {
	if c == nil {
		return 1.0
	}
	return 1.0 + leadershipStep*float64(c.Leadership)
}

// defenseMult returns a side's incoming-damage multiplier from its
// commander, entrenchment, and research.
func defenseMult(ctx *sim.Context, a *world.Army, c *world.Commander) float64 {
	mult := 1.0
	if c != nil {
		m := 1.0 - tacticsStep*float64(c.Tactics)
		if m < tacticsFloor {
			m = tacticsFloor
		}
		mult *= m
	}
	if a != nil && a.Entrenched {
		em := entrenchBaseMult
		if p := ctx.State.Players[a.Owner]; p != nil && p.HasCompleted(world.ResearchFortification) {
			em = entrenchFortifiedMult
		}
		mult *= em
	}
	return mult
}

// buildingOutput returns the raw output a composition applies against a
// building: buildings have no armor channels, siege units hit harder.
func buildingOutput(p *world.Player, comp map[world.UnitType]int) float64 {
	total := 0.0
	for u, n := range comp {
		if n <= 0 {
			continue
		}
		stats := world.UnitStatsFor(u)
		perUnit := float64(stats.Attack[0] + stats.Attack[1] + stats.Attack[2])
		if stats.Siege {
			perUnit *= siegeBuildingMult
		}
		total += perUnit * float64(n)
	}
	if p != nil && p.HasCompleted(world.ResearchSwordsmithing) {
		total *= 1.05
	}
	return total
}

// distributeCasualties converts a damage pool into per-type losses,
// distributed by each type's share of total strength rather than
// uniformly. Fractional kills round half-up per type so sustained small
// damage still attrits large armies.
func distributeCasualties(comp map[world.UnitType]int, damage float64) map[world.UnitType]int {
	if damage <= 0 {
		return nil
	}
	totalStrength := 0
	for u, n := range comp {
		if n <= 0 {
			continue
		}
		s := world.UnitStatsFor(u)
		totalStrength += (s.HP + s.Attack[0] + s.Attack[1] + s.Attack[2]) * n
	}
	if totalStrength == 0 {
		return nil
	}

	losses := make(map[world.UnitType]int)
	for u, n := range comp {
		if n <= 0 {
			continue
		}
		s := world.UnitStatsFor(u)
		share := float64((s.HP+s.Attack[0]+s.Attack[1]+s.Attack[2])*n) / float64(totalStrength)
		typeDamage := damage * share
		kills := int(typeDamage/float64(s.HP) + 0.5)
		if kills > n {
			kills = n
		}
		if kills > 0 {
			losses[u] = kills
		}
	}
	return losses
}
