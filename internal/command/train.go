package command

import (
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// trainQueueCap bounds the number of pending orders per building.
const trainQueueCap = 5

// TrainUnits queues a batch of military units at a barracks or fort.
// The full batch cost is paid up front.
type TrainUnits struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
	Unit       world.UnitType   `json:"unit"`
	Count      int              `json:"count"`
}

func (c TrainUnits) Name() string { return "train_units" }

func (c TrainUnits) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if !b.Operational() {
		return Failure("building %d is not operational", c.BuildingID)
	}
	if b.Type != world.BuildingBarracks && b.Type != world.BuildingFort {
		return Failure("%s cannot train units", world.BuildingName(b.Type))
	}
	if c.Count <= 0 {
		return Failure("count must be positive")
	}
	if len(b.Training) >= trainQueueCap {
		return Failure("training queue at building %d is full", c.BuildingID)
	}
	if c.Unit == world.UnitKnight && !p.HasCompleted(world.ResearchHorsemanship) {
		return Failure("knights require horsemanship")
	}
	if !p.CanAfford(batchCost(world.UnitStatsFor(c.Unit).Cost, c.Count)) {
		return Failure("cannot afford %d %s", c.Count, world.UnitName(c.Unit))
	}
	return Success()
}

func (c TrainUnits) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	b := ctx.State.Buildings[c.BuildingID]
	stats := world.UnitStatsFor(c.Unit)

	p.Spend(batchCost(stats.Cost, c.Count))
	b.Training = append(b.Training, world.TrainingOrder{
		Unit:      c.Unit,
		Count:     c.Count,
		StartTick: queueStart(b, ctx.Now()),
		TimeEach:  stats.TrainTime,
	})
	return Success(), nil
}

// TrainVillagers queues a batch of villagers at a town hall.
type TrainVillagers struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
	Count      int              `json:"count"`
}

func (c TrainVillagers) Name() string { return "train_villagers" }

func (c TrainVillagers) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if !b.Operational() {
		return Failure("building %d is not operational", c.BuildingID)
	}
	if b.Type != world.BuildingTownHall {
		return Failure("%s cannot train villagers", world.BuildingName(b.Type))
	}
	if c.Count <= 0 {
		return Failure("count must be positive")
	}
	if len(b.Training) >= trainQueueCap {
		return Failure("training queue at building %d is full", c.BuildingID)
	}
	cost := map[world.ResourceType]int{world.ResourceFood: world.VillagerTrainCost * c.Count}
	if !p.CanAfford(cost) {
		return Failure("cannot afford %d villagers", c.Count)
	}
	return Success()
}

func (c TrainVillagers) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	b := ctx.State.Buildings[c.BuildingID]

	p.Spend(map[world.ResourceType]int{world.ResourceFood: world.VillagerTrainCost * c.Count})
	b.Training = append(b.Training, world.TrainingOrder{
		Villagers: true,
		Count:     c.Count,
		StartTick: queueStart(b, ctx.Now()),
		TimeEach:  world.VillagerTrainTime,
	})
	return Success(), nil
}

// queueStart serializes orders: a new order starts when the last one
// finishes, or now if the queue is empty.
func queueStart(b *world.Building, now uint64) uint64 {
	if len(b.Training) == 0 {
		return now
	}
	last := b.Training[len(b.Training)-1]
	end := last.StartTick + uint64(last.Count)*last.TimeEach
	if end < now {
		return now
	}
	return end
}

func batchCost(unit map[world.ResourceType]int, count int) map[world.ResourceType]int {
	out := make(map[world.ResourceType]int, len(unit))
	for res, amount := range unit {
		out[res] = amount * count
	}
	return out
}
