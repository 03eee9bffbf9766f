// Package main - crew-sim
// Load generator: N crews connect over WebSocket, create a player each and
// spam random actions until the duration runs out.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cosanostra-game/server/internal/protocol"
)

// Config for the simulation
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	ResultsPath    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Events           int64
	Refused          int64
	Errors           int64
	Latencies        []time.Duration
	Codes            map[string]int64
	mu               sync.Mutex
}

func (s *Stats) refusal(code string) {
	s.mu.Lock()
	s.Codes[code]++
	s.mu.Unlock()
}

var crimes = []string{"pickpocket", "shoplift", "mugging"}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 250*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	out := flag.String("out", "crew_sim_results.json", "Where to write the JSON report")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		ResultsPath:    *out,
	}

	fmt.Println("=========================================")
	fmt.Println("CREW SIM - WebSocket load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runSimulation(ctx, config)
	printResults(stats, config)
}

func runSimulation(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
		Codes:     make(map[string]int64),
	}
	run := uuid.NewString()[:6]

	var wg sync.WaitGroup
	fmt.Println("\nStarting crews...")
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, fmt.Sprintf("crew-%s-%d", run, clientID), config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d crews started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Events=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent), atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Events), atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	OK        bool            `json:"ok"`
	Code      string          `json:"code"`
	Data      json.RawMessage `json:"data"`
}

func runClient(ctx context.Context, name string, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("%s: connection failed: %v", name, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Create the player synchronously so every later action has an ID.
	create := protocol.ActionMessage{Type: protocol.ActionCreatePlayer, RequestID: "create"}
	create.Payload, _ = json.Marshal(protocol.CreatePlayerPayload{Name: name})
	if err := conn.WriteJSON(create); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	var playerID string
	for playerID == "" {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			atomic.AddInt64(&stats.Errors, 1)
			return
		}
		if msg.Type != protocol.TypeResult {
			continue
		}
		if !msg.OK {
			log.Printf("%s: create refused: %s", name, msg.Code)
			atomic.AddInt64(&stats.Errors, 1)
			return
		}
		var p struct {
			ID string `json:"id"`
		}
		json.Unmarshal(msg.Data, &p)
		playerID = p.ID
	}

	var pending sync.Map // request_id -> time.Time
	go func() {
		for {
			var msg inbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if msg.Type == protocol.TypeEvent {
				atomic.AddInt64(&stats.Events, 1)
				continue
			}
			if v, ok := pending.LoadAndDelete(msg.RequestID); ok {
				stats.mu.Lock()
				stats.Latencies = append(stats.Latencies, time.Since(v.(time.Time)))
				stats.mu.Unlock()
			}
			switch {
			case msg.OK:
			case msg.Code == protocol.ErrInternal:
				atomic.AddInt64(&stats.Errors, 1)
			default:
				atomic.AddInt64(&stats.Refused, 1)
				stats.refusal(msg.Code)
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := randomAction(rng, playerID)
			action.RequestID = fmt.Sprintf("%s-%d", name, n)
			pending.Store(action.RequestID, time.Now())
			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

func randomAction(rng *rand.Rand, playerID string) protocol.ActionMessage {
	msg := protocol.ActionMessage{PlayerID: playerID}
	var payload interface{}
	switch rng.Intn(6) {
	case 0, 1:
		msg.Type = protocol.ActionCrime
		payload = protocol.CrimePayload{CrimeID: crimes[rng.Intn(len(crimes))]}
	case 2:
		msg.Type = protocol.ActionCasino
		payload = protocol.CasinoPayload{Game: "coinflip", Bet: 10 + rng.Intn(40), Choice: []string{"heads", "tails"}[rng.Intn(2)]}
	case 3:
		msg.Type = protocol.ActionDeposit
		payload = protocol.AmountPayload{Amount: 1 + rng.Intn(50)}
	case 4:
		msg.Type = protocol.ActionMarket
		payload = protocol.MarketPayload{}
	default:
		msg.Type = protocol.ActionStatus
	}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	return msg
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("CREW SIM RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	refused := atomic.LoadInt64(&stats.Refused)

	fmt.Printf("Messages Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Events Received:   %s\n", humanize.Comma(atomic.LoadInt64(&stats.Events)))
	fmt.Printf("Refused:           %s\n", humanize.Comma(refused))
	fmt.Printf("Errors:            %s\n", humanize.Comma(errs))
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	codes := make([]string, 0, len(stats.Codes))
	for c := range stats.Codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Printf("  %-14s %s\n", c, humanize.Comma(stats.Codes[c]))
	}

	var p50, p99 time.Duration
	if n := len(stats.Latencies); n > 0 {
		sort.Slice(stats.Latencies, func(i, j int) bool { return stats.Latencies[i] < stats.Latencies[j] })
		p50 = stats.Latencies[n/2]
		p99 = stats.Latencies[n*99/100]
		fmt.Printf("\nRound trip:\n")
		fmt.Printf("  p50: %v\n", p50)
		fmt.Printf("  p99: %v\n", p99)
		fmt.Printf("  max: %v\n", stats.Latencies[n-1])
	}

	fmt.Println("\n-----------------------------------------")
	switch rate := float64(errs) / float64(sent+1); {
	case errs == 0:
		fmt.Println("PASSED: no server errors")
	case rate < 0.05:
		fmt.Println("WARNING: some errors detected")
	default:
		fmt.Println("FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"refused":            refused,
		"refusals_by_code":   stats.Codes,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"p50_ms":             float64(p50) / float64(time.Millisecond),
		"p99_ms":             float64(p99) / float64(time.Millisecond),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
		log.Printf("failed to write results: %v", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.ResultsPath)
}
