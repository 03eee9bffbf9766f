// Package main - balance-sim
// Offline balance report: runs simulated careers through the real engine with a
// seeded roller and a fake clock, then checks the numbers against thresholds.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/narrative"
	"github.com/cosanostra-game/server/internal/platform/logger"
)

// Thresholds a healthy catalog must meet.
type Thresholds struct {
	MinSuccessRate float64
	MinIncomePerHr float64
	MaxJailRate    float64
	MinAvgRank     float64
}

type crimeStats struct {
	attempted, succeeded int
	earned               int64
}

type career struct {
	id       string
	jailed   int
	bails    int
	earned   int64
	rank     int
	rankName string
}

type report struct {
	careers []career
	crimes  map[string]*crimeStats
	hours   float64
}

func main() {
	tuning := flag.String("tuning", "", "catalog YAML to test (default: embedded)")
	careers := flag.Int("careers", 50, "number of simulated careers")
	hours := flag.Float64("hours", 12, "simulated hours per career")
	step := flag.Duration("step", 15*time.Second, "simulated time between decisions")
	seed := flag.Int64("seed", 1, "roller seed")
	minSuccess := flag.Float64("min-success", 0.35, "minimum overall crime success rate")
	minIncome := flag.Float64("min-income", 50, "minimum average crime income per hour")
	maxJail := flag.Float64("max-jail-rate", 0.25, "maximum arrests per crime attempted")
	minRank := flag.Float64("min-rank", 1, "minimum average rank reached")
	flag.Parse()

	fmt.Println("🎲 COSA NOSTRA - BALANCE SIMULATION")
	fmt.Println(strings.Repeat("=", 60))

	var (
		cat *catalog.Catalog
		err error
	)
	if *tuning != "" {
		cat, err = catalog.Load(*tuning)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load catalog: %v\n", err)
		os.Exit(2)
	}

	rep, err := simulate(cat, *careers, time.Duration(*hours*float64(time.Hour)), *step, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(2)
	}
	failures := rep.print(cat, Thresholds{
		MinSuccessRate: *minSuccess,
		MinIncomePerHr: *minIncome,
		MaxJailRate:    *maxJail,
		MinAvgRank:     *minRank,
	})

	if len(failures) > 0 {
		fmt.Println("\n⚠️  Balance needs recalibration:")
		for _, f := range failures {
			fmt.Println("   ❌ " + f)
		}
		os.Exit(1)
	}
	fmt.Println("\n✅ Balance within thresholds")
}

func simulate(cat *catalog.Catalog, n int, length, step time.Duration, seed int64) (*report, error) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	eng := engine.NewEngine(cat, events.NewEventLog(10000), logger.NewNopLogger(), engine.Options{
		Roller: rules.NewRoller(seed),
		Clock:  clock,
	})
	eng.SeedWorld()

	rep := &report{crimes: make(map[string]*crimeStats), hours: length.Hours()}
	for _, c := range cat.Crimes {
		rep.crimes[c.ID] = &crimeStats{}
	}
	// Hardest crimes first.
	order := append([]catalog.Crime(nil), cat.Crimes...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].MinRank > order[j].MinRank })

	rep.careers = make([]career, n)
	for i := range rep.careers {
		p, err := eng.CreatePlayer(fmt.Sprintf("sim-%03d", i))
		if err != nil {
			return nil, err
		}
		rep.careers[i].id = p.ID
	}

	lastTick := now
	for end := now.Add(length); now.Before(end); now = now.Add(step) {
		if now.Sub(lastTick) >= engine.DefaultTickRate {
			eng.Tick()
			lastTick = now
		}
		for i := range rep.careers {
			act(eng, &rep.careers[i], order, rep.crimes)
		}
	}

	for i := range rep.careers {
		p, err := eng.Player(rep.careers[i].id)
		if err != nil {
			return nil, err
		}
		rep.careers[i].rank = p.Rank
		rep.careers[i].rankName = cat.Ranks[p.Rank].Name
	}
	return rep, nil
}

// act makes one decision for a career: bail out, learn a skill, or commit the
// best crime available.
func act(eng *engine.Engine, c *career, order []catalog.Crime, stats map[string]*crimeStats) {
	p, err := eng.Player(c.id)
	if err != nil {
		return
	}
	if p.SkillPoints > 0 {
		eng.LearnSkill(c.id, catalog.SkillCrimeMastery)
	}
	for _, crime := range order {
		if crime.MinRank > p.Rank {
			continue
		}
		res, err := eng.CommitCrime(c.id, crime.ID)
		switch {
		case err == nil:
			s := stats[crime.ID]
			s.attempted++
			if res.Success {
				s.succeeded++
				s.earned += int64(res.Reward)
				c.earned += int64(res.Reward)
			}
			if res.Jailed {
				c.jailed++
			}
			return
		case errors.Is(err, engine.ErrOnCooldown):
			continue
		case errors.Is(err, engine.ErrJailed):
			if quote, qerr := eng.BailQuote(c.id); qerr == nil && quote > 0 && quote <= p.Cash/2 {
				if _, berr := eng.PostBail(c.id); berr == nil {
					c.bails++
				}
			}
			return
		default:
			// Hospital, travel or no stamina: wait for the next step.
			return
		}
	}
}

func (r *report) print(cat *catalog.Catalog, th Thresholds) []string {
	var failures []string

	fmt.Printf("\nCareers: %d   Simulated: %.1f hours each\n", len(r.careers), r.hours)
	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("%-16s %10s %10s %9s %14s\n", "CRIME", "ATTEMPTS", "SUCCESS", "RATE", "EARNED")
	var attempted, succeeded int
	for _, c := range cat.Crimes {
		s := r.crimes[c.ID]
		attempted += s.attempted
		succeeded += s.succeeded
		rate := 0.0
		if s.attempted > 0 {
			rate = float64(s.succeeded) / float64(s.attempted)
		}
		fmt.Printf("%-16s %10s %10s %8.1f%% %14s\n", c.ID,
			humanize.Comma(int64(s.attempted)), humanize.Comma(int64(s.succeeded)), rate*100, narrative.Money(int(s.earned)))
	}

	var earned int64
	var jailed, bails, rankSum int
	ranks := make(map[string]int)
	for _, c := range r.careers {
		earned += c.earned
		jailed += c.jailed
		bails += c.bails
		rankSum += c.rank
		ranks[c.rankName]++
	}
	n := float64(len(r.careers))
	successRate, jailRate := 0.0, 0.0
	if attempted > 0 {
		successRate = float64(succeeded) / float64(attempted)
		jailRate = float64(jailed) / float64(attempted)
	}
	incomePerHr := 0.0
	if n > 0 && r.hours > 0 {
		incomePerHr = float64(earned) / n / r.hours
	}
	avgRank := 0.0
	if n > 0 {
		avgRank = float64(rankSum) / n
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Overall success rate: %.1f%%\n", successRate*100)
	fmt.Printf("Arrests per attempt:  %.1f%%\n", jailRate*100)
	fmt.Printf("Bails posted:         %s\n", humanize.Comma(int64(bails)))
	fmt.Printf("Income per hour:      %s\n", narrative.Money(int(incomePerHr)))
	fmt.Printf("Average rank:         %.2f\n", avgRank)
	for i, rk := range cat.Ranks {
		if ranks[rk.Name] > 0 {
			fmt.Printf("   %2d %-20s %d careers\n", i, rk.Name, ranks[rk.Name])
		}
	}

	if successRate < th.MinSuccessRate {
		failures = append(failures, fmt.Sprintf("success rate %.2f below %.2f", successRate, th.MinSuccessRate))
	}
	if incomePerHr < th.MinIncomePerHr {
		failures = append(failures, fmt.Sprintf("income per hour %.0f below %.0f", incomePerHr, th.MinIncomePerHr))
	}
	if jailRate > th.MaxJailRate {
		failures = append(failures, fmt.Sprintf("arrest rate %.2f above %.2f", jailRate, th.MaxJailRate))
	}
	if avgRank < th.MinAvgRank {
		failures = append(failures, fmt.Sprintf("average rank %.2f below %.2f", avgRank, th.MinAvgRank))
	}
	return failures
}
