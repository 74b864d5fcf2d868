package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/seed"
)

// SimConfig drives a bed-allocation race against a running api-server whose
// directory was loaded by cmd/seed.
type SimConfig struct {
	APIBaseURL     string
	Duration       time.Duration
	Workers        int
	Patients       int
	Doctors        int
	Nurses         int
	AdmitRatio     float64
	AssignRatio    float64
	DischargeRatio float64
	SigningKey     string
	Issuer         string
}

type DataPool struct {
	Beds       []uuid.UUID
	mu         sync.RWMutex
	admissions []uuid.UUID
}

func (dp *DataPool) AddAdmission(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.admissions = append(dp.admissions, id)
}

func (dp *DataPool) RemoveAdmission(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	for i, a := range dp.admissions {
		if a == id {
			dp.admissions = append(dp.admissions[:i], dp.admissions[i+1:]...)
			return
		}
	}
}

func (dp *DataPool) RandomAdmission(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.admissions) == 0 {
		return uuid.Nil, false
	}
	return dp.admissions[rng.Intn(len(dp.admissions))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[min2(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min2(len(latencies)*95/100, len(latencies)-1)]
	return avg, min, max, p50, p95
}

type Metrics struct {
	Admit     OperationMetrics
	AssignBed OperationMetrics
	Discharge OperationMetrics
	ListBeds  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	cfg := SimConfig{
		APIBaseURL:     "http://localhost:8080",
		Duration:       30 * time.Second,
		Workers:        10,
		Patients:       seed.DefaultOptions().Patients,
		Doctors:        seed.DefaultOptions().Doctors,
		Nurses:         seed.DefaultOptions().Nurses,
		AdmitRatio:     0.4,
		AssignRatio:    0.3,
		DischargeRatio: 0.1,
	}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Race admissions and bed assignments against a running api-server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.SigningKey == "" {
				cfg.SigningKey = os.Getenv("AUTH_SIGNING_KEY")
			}
			if err := validateConfig(cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.APIBaseURL, "url", cfg.APIBaseURL, "api-server base URL")
	f.DurationVar(&cfg.Duration, "duration", cfg.Duration, "How long to run")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers")
	f.IntVar(&cfg.Patients, "patients", cfg.Patients, "Seeded patient count")
	f.IntVar(&cfg.Doctors, "doctors", cfg.Doctors, "Seeded doctor count")
	f.IntVar(&cfg.Nurses, "nurses", cfg.Nurses, "Seeded nurse count")
	f.Float64Var(&cfg.AdmitRatio, "admit-ratio", cfg.AdmitRatio, "Share of admission requests")
	f.Float64Var(&cfg.AssignRatio, "assign-ratio", cfg.AssignRatio, "Share of bed assignment requests")
	f.Float64Var(&cfg.DischargeRatio, "discharge-ratio", cfg.DischargeRatio, "Share of discharge requests")
	f.StringVar(&cfg.SigningKey, "signing-key", "", "HS256 key for bearer tokens (defaults to AUTH_SIGNING_KEY, empty uses dev headers)")
	f.StringVar(&cfg.Issuer, "issuer", os.Getenv("AUTH_ISSUER"), "iss claim for bearer tokens")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if cfg.Patients <= 0 || cfg.Doctors <= 0 || cfg.Nurses <= 0 {
		return fmt.Errorf("patients, doctors and nurses must be > 0")
	}
	if cfg.AdmitRatio+cfg.AssignRatio+cfg.DischargeRatio > 1 {
		return fmt.Errorf("admit, assign and discharge ratios must not exceed 1 together")
	}
	return nil
}

func run(ctx context.Context, cfg SimConfig) error {
	sim := &Simulator{
		config: cfg,
		pool:   &DataPool{},
		client: &http.Client{Timeout: 10 * time.Second},
	}

	beds, err := sim.listBeds(ctx)
	if err != nil {
		return fmt.Errorf("load beds: %w", err)
	}
	for _, b := range beds {
		if b.IsActive {
			sim.pool.Beds = append(sim.pool.Beds, b.ID)
		}
	}
	if len(sim.pool.Beds) == 0 {
		return fmt.Errorf("no active beds, run cmd/seed first")
	}
	fmt.Printf("loaded %d beds, racing %d workers for %s\n", len(sim.pool.Beds), cfg.Workers, cfg.Duration)

	sim.Run(ctx)
	sim.PrintReport()
	return sim.CheckInvariants(ctx)
}

func (s *Simulator) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.AdmitRatio:
				s.doAdmit(ctx, rng)
			case r < s.config.AdmitRatio+s.config.AssignRatio:
				s.doAssignBed(ctx, rng)
			case r < s.config.AdmitRatio+s.config.AssignRatio+s.config.DischargeRatio:
				s.doDischarge(ctx, rng)
			default:
				s.doListBeds(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doctor(rng *rand.Rand) auth.Identity {
	return auth.Identity{UserID: seed.DoctorID(rng.Intn(s.config.Doctors) + 1), Role: auth.RoleDoctor}
}

func (s *Simulator) nurse(rng *rand.Rand) auth.Identity {
	return auth.Identity{UserID: seed.NurseID(rng.Intn(s.config.Nurses) + 1), Role: auth.RoleNurse}
}

func (s *Simulator) randomBed(rng *rand.Rand) uuid.UUID {
	return s.pool.Beds[rng.Intn(len(s.pool.Beds))]
}

func (s *Simulator) doAdmit(ctx context.Context, rng *rand.Rand) {
	bed := s.randomBed(rng)
	body := map[string]any{
		"patient_id":            seed.PatientID(rng.Intn(s.config.Patients) + 1),
		"chief_complaint":       "simulated",
		"provisional_diagnosis": "simulated",
		"bed_id":                bed,
	}

	start := time.Now()
	status, respBody, err := s.send(ctx, s.doctor(rng), http.MethodPost, "/admissions", body)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil && created.ID != uuid.Nil {
			s.pool.AddAdmission(created.ID)
		}
	}
	s.metrics.Admit.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doAssignBed(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAdmission(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, s.nurse(rng), http.MethodPost, "/admissions/"+id.String()+"/bed",
		map[string]any{"bed_id": s.randomBed(rng)})
	s.metrics.AssignBed.Record(time.Since(start), err == nil && status == http.StatusOK, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doDischarge(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAdmission(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, s.doctor(rng), http.MethodPost, "/admissions/"+id.String()+"/discharge",
		map[string]any{"notes": "simulated discharge"})
	latency := time.Since(start)

	success := err == nil && status == http.StatusOK
	if success || (err == nil && status == http.StatusConflict) {
		s.pool.RemoveAdmission(id)
	}
	s.metrics.Discharge.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doListBeds(ctx context.Context, rng *rand.Rand) {
	start := time.Now()
	status, _, err := s.send(ctx, s.nurse(rng), http.MethodGet, "/beds", nil)
	s.metrics.ListBeds.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

type bedView struct {
	ID          uuid.UUID  `json:"id"`
	IsActive    bool       `json:"is_active"`
	AdmissionID *uuid.UUID `json:"admission_id"`
}

func (s *Simulator) listBeds(ctx context.Context) ([]bedView, error) {
	status, body, err := s.send(ctx, auth.Identity{UserID: seed.AdminID, Role: auth.RoleAdmin}, http.MethodGet, "/beds", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET /beds returned %d: %s", status, strings.TrimSpace(string(body)))
	}
	var beds []bedView
	if err := json.Unmarshal(body, &beds); err != nil {
		return nil, err
	}
	return beds, nil
}

// CheckInvariants fails when any admission ended up holding more than one bed.
func (s *Simulator) CheckInvariants(ctx context.Context) error {
	beds, err := s.listBeds(ctx)
	if err != nil {
		return fmt.Errorf("load beds after run: %w", err)
	}

	held := make(map[uuid.UUID]int)
	occupied := 0
	for _, b := range beds {
		if b.AdmissionID != nil {
			held[*b.AdmissionID]++
			occupied++
		}
	}

	violations := 0
	for id, n := range held {
		if n > 1 {
			fmt.Printf("VIOLATION: admission %s holds %d beds\n", id, n)
			violations++
		}
	}
	fmt.Printf("Occupied beds: %d/%d, invariant violations: %d\n", occupied, len(beds), violations)
	if violations > 0 {
		return fmt.Errorf("%d admissions hold more than one bed", violations)
	}
	return nil
}

func (s *Simulator) send(ctx context.Context, as auth.Identity, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := s.authorize(req, as); err != nil {
		return 0, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

func (s *Simulator) authorize(req *http.Request, as auth.Identity) error {
	if s.config.SigningKey == "" {
		req.Header.Set("X-User-ID", as.UserID)
		req.Header.Set("X-User-Role", string(as.Role))
		return nil
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   as.UserID,
			Issuer:    s.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: string(as.Role),
	}).SignedString([]byte(s.config.SigningKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Admit", &s.metrics.Admit)
	printOperationReport("Assign bed", &s.metrics.AssignBed)
	printOperationReport("Discharge", &s.metrics.Discharge)
	printOperationReport("List beds", &s.metrics.ListBeds)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}
