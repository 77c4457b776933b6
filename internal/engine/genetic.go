package engine

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/piwi3910/curenest/internal/model"
)

// GeneticConfig holds parameters for the genetic search.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteCount     int
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 40,
		Generations:    200,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
	}
}

// gene represents a single part placement decision in the chromosome.
type gene struct {
	partIndex int  // index into Model.Parts
	rotated   bool // preferred orientation
}

// chromosome is an ordering of parts with orientation preferences.
type chromosome struct {
	genes   []gene
	fitness float64
	score   score
}

// geneticSearch evolves placement orders and decodes each one with the
// first-fit placer.
type geneticSearch struct {
	m        *Model
	config   GeneticConfig
	rng      *rand.Rand
	ctx      context.Context
	deadline time.Time

	stopped   bool
	cancelled bool
}

func newGeneticSearch(ctx context.Context, m *Model, config GeneticConfig, seed int64, deadline time.Time) *geneticSearch {
	return &geneticSearch{
		m:        m,
		config:   config,
		rng:      rand.New(rand.NewSource(seed)),
		ctx:      ctx,
		deadline: deadline,
	}
}

func searchGenetic(ctx context.Context, m *Model, p Params) (model.Solution, error) {
	start := time.Now()
	config := DefaultGeneticConfig()
	if p.Population > 0 {
		config.PopulationSize = p.Population
	}
	if p.Generations > 0 {
		config.Generations = p.Generations
	}

	g := newGeneticSearch(ctx, m, config, p.Seed, start.Add(p.PrimaryBudget))
	best := g.run()
	if g.cancelled {
		return model.Solution{}, model.ErrCancelled
	}

	sol := best.solution(model.SolverGenetic)
	sol.Elapsed = time.Since(start)
	if ub := m.upperBound(); ub > 0 {
		sol.Gap = (ub - best.covered) / ub
	}
	if sol.Gap <= 1e-9 && len(sol.Unplaced) == 0 && !m.tieMatters() {
		sol.Gap = 0
		sol.Status = model.StatusOptimal
	}
	return sol, nil
}

// poll checks the deadline and context.
func (g *geneticSearch) poll() bool {
	if g.stopped {
		return true
	}
	if g.ctx.Err() != nil {
		g.cancelled = true
		g.stopped = true
	} else if time.Now().After(g.deadline) {
		g.stopped = true
	}
	return g.stopped
}

// run evolves the population and returns the best decoded layout. The
// greedy seed is always decoded, so a result exists even when the deadline
// passes during the first generation.
func (g *geneticSearch) run() *layout {
	if len(g.m.Parts) == 0 || len(g.m.Beds) == 0 {
		return newLayout(g.m)
	}

	population := g.initPopulation()
	bestLayout := g.decode(population[0])
	population[0].score = g.m.scoreOf(bestLayout.placements)
	population[0].fitness = g.fitness(population[0].score)
	bestScore := population[0].score

	consider := func(c *chromosome) {
		l := g.decode(*c)
		c.score = g.m.scoreOf(l.placements)
		c.fitness = g.fitness(c.score)
		if g.m.better(c.score, bestScore) {
			bestScore = c.score
			bestLayout = l
		}
	}

	for i := 1; i < len(population); i++ {
		if g.poll() {
			return bestLayout
		}
		consider(&population[i])
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		if g.poll() {
			break
		}
		// Sort by fitness descending (higher is better)
		sort.SliceStable(population, func(i, j int) bool {
			return population[i].fitness > population[j].fitness
		})

		newPop := make([]chromosome, 0, g.config.PopulationSize)

		// Elitism: carry over the best individuals unchanged
		eliteCount := min(g.config.EliteCount, len(population))
		for i := 0; i < eliteCount; i++ {
			newPop = append(newPop, g.copyChromosome(population[i]))
		}

		for len(newPop) < g.config.PopulationSize {
			if g.poll() {
				return bestLayout
			}
			parent1 := g.tournamentSelect(population)
			parent2 := g.tournamentSelect(population)

			child := g.orderCrossover(parent1, parent2)
			g.mutate(&child)

			consider(&child)
			newPop = append(newPop, child)
		}

		population = newPop
	}

	return bestLayout
}

// fitness flattens a score into one number: covered fraction plus a small
// tie-break share.
func (g *geneticSearch) fitness(s score) float64 {
	total := g.m.totalArea
	if total <= 0 {
		return 0
	}
	return s.covered/total + 1e-3*s.tie
}

// initPopulation creates the initial random population, seeded with the
// greedy order.
func (g *geneticSearch) initPopulation() []chromosome {
	n := len(g.m.Parts)
	size := max(g.config.PopulationSize, 1)
	population := make([]chromosome, size)

	population[0] = g.greedyChromosome()
	for i := 1; i < size; i++ {
		genes := make([]gene, n)
		perm := g.rng.Perm(n)
		for j := 0; j < n; j++ {
			genes[j] = gene{
				partIndex: perm[j],
				rotated:   g.canRotate(perm[j]) && g.rng.Float64() < 0.5,
			}
		}
		population[i] = chromosome{genes: genes}
	}
	return population
}

// greedyChromosome follows the fallback order with normal orientation.
func (g *geneticSearch) greedyChromosome() chromosome {
	genes := make([]gene, len(g.m.order))
	for i, idx := range g.m.order {
		genes[i] = gene{partIndex: idx}
	}
	return chromosome{genes: genes}
}

func (g *geneticSearch) canRotate(pi int) bool {
	return len(g.m.Parts[pi].Orientations()) > 1
}

// decode places the genes in order with the first-fit placer; the gene's
// orientation is tried first.
func (g *geneticSearch) decode(c chromosome) *layout {
	l := newLayout(g.m)
	for _, gn := range c.genes {
		orient := []bool{false}
		if g.canRotate(gn.partIndex) {
			orient = []bool{gn.rotated, !gn.rotated}
		}
		if mv, ok := l.firstFit(gn.partIndex, orient, false); ok {
			l.apply(mv)
		}
	}
	return l
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticSearch) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return g.copyChromosome(best)
}

// orderCrossover implements Order Crossover (OX1) for permutation chromosomes.
// It preserves the relative order of genes from both parents.
func (g *geneticSearch) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.genes)
	if n <= 2 {
		return g.copyChromosome(parent1)
	}

	point1 := g.rng.Intn(n)
	point2 := g.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{genes: make([]gene, n)}

	inSegment := make(map[int]bool)
	for i := point1; i <= point2; i++ {
		child.genes[i] = parent1.genes[i]
		inSegment[parent1.genes[i].partIndex] = true
	}

	childIdx := (point2 + 1) % n
	for _, pg := range parent2.genes {
		if !inSegment[pg.partIndex] {
			child.genes[childIdx] = pg
			childIdx = (childIdx + 1) % n
		}
	}

	return child
}

// mutate applies swap, rotation and inversion mutations.
func (g *geneticSearch) mutate(c *chromosome) {
	n := len(c.genes)
	if n < 2 {
		return
	}

	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}

	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		if g.canRotate(c.genes[i].partIndex) {
			c.genes[i].rotated = !c.genes[i].rotated
		}
	}

	// Inversion is less frequent
	if g.rng.Float64() < g.config.MutationRate*0.5 {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
			i++
			j--
		}
	}
}

// copyChromosome creates a deep copy of a chromosome.
func (g *geneticSearch) copyChromosome(c chromosome) chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness, score: c.score}
}
