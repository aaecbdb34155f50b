package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devskill-org/sigenergy-gateway/sigenergy"
)

// tickDeadline is the per-tick deadline from §4.6/§5; exceeding it is logged,
// LastUpdateSucceeded turns false, and the previous snapshot remains current.
const tickDeadline = 60 * time.Second

// storeOpTimeout bounds a single persistence round trip (load or save of
// integrator state), independent of the tick deadline.
const storeOpTimeout = 5 * time.Second

// PeriodicTask runs runFunc on a ticker, after an optional initial delay,
// until ctx is cancelled or stopChan closes.
type PeriodicTask struct {
	name         string
	initialDelay time.Duration
	interval     time.Duration
	runFunc      func()
}

func (pt *PeriodicTask) run(ctx context.Context, stopChan <-chan struct{}, logger *log.Logger) {
	if pt.initialDelay > 0 {
		select {
		case <-time.After(pt.initialDelay):
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] stopped during initial delay: context cancelled", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] stopped during initial delay: stop signal", pt.name)
			return
		}
	} else {
		pt.runFunc()
	}

	ticker := time.NewTicker(pt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pt.runFunc()
		case <-ctx.Done():
			logger.Printf("[%s] stopped: context cancelled", pt.name)
			return
		case <-stopChan:
			logger.Printf("[%s] stopped: stop signal", pt.name)
			return
		}
	}
}

// alignedDelay returns the delay until the next top-of-interval boundary so
// periodic tasks of different cadences stay phase-aligned to the hour.
func alignedDelay(now time.Time, interval time.Duration) time.Duration {
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	delay := now.Sub(top)
	for delay > 0 {
		delay -= interval
	}
	return -delay
}

// Coordinator is the Polling Coordinator (§4.6): a single-threaded tick loop
// that fans out per-device reads concurrently, assembles a Snapshot, runs
// the integration update pass, and publishes atomically.
type Coordinator struct {
	config *Config
	hub    *sigenergy.Hub
	reader *sigenergy.Reader
	pool   *sigenergy.Pool
	logger *log.Logger

	plant      sigenergy.DeviceRecord
	inverters  []sigenergy.DeviceRecord
	acChargers []sigenergy.DeviceRecord

	integrators map[string]*sigenergy.Integrator
	store       *Store

	snapshot atomic.Pointer[sigenergy.Snapshot]
	lastGood atomic.Bool

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewCoordinator builds a Coordinator from configuration, wiring one hub and
// reader over a shared connection pool. store may be nil, in which case
// integrators start fresh and nothing is persisted across restarts.
func NewCoordinator(config *Config, logger *log.Logger, store *Store) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	pool := sigenergy.NewPool()
	hub := sigenergy.NewHub(pool, logger, config.PlantConnection.ReadOnly)
	reader := sigenergy.NewReader(hub)

	c := &Coordinator{
		config:      config,
		hub:         hub,
		reader:      reader,
		pool:        pool,
		logger:      logger,
		integrators: make(map[string]*sigenergy.Integrator),
		store:       store,
	}

	c.plant = sigenergy.DeviceRecord{
		Kind:     sigenergy.DeviceKindPlant,
		Endpoint: sigenergy.Endpoint{Host: config.PlantConnection.Host, Port: config.PlantConnection.Port},
		UnitID:   config.PlantConnection.UnitID,
	}
	for name, inv := range config.InverterConnections {
		c.inverters = append(c.inverters, sigenergy.DeviceRecord{
			Kind:         sigenergy.DeviceKindInverter,
			LogicalName:  name,
			Endpoint:     sigenergy.Endpoint{Host: inv.Host, Port: inv.Port},
			UnitID:       inv.UnitID,
			HasDCCharger: inv.HasDCCharger,
		})
	}
	for name, ac := range config.ACChargerConnections {
		c.acChargers = append(c.acChargers, sigenergy.DeviceRecord{
			Kind:        sigenergy.DeviceKindACCharger,
			LogicalName: name,
			Endpoint:    sigenergy.Endpoint{Host: ac.Host, Port: ac.Port},
			UnitID:      ac.UnitID,
		})
	}

	for _, ic := range config.Integrators {
		policy := sigenergy.ResetNever
		if ic.DailyReset {
			policy = sigenergy.ResetDailyLocalMidnight
		}
		c.RegisterIntegrator(sigenergy.NewIntegrator(ic.SourceSensorKey, policy, ic.RoundDigits, 0))
	}

	c.snapshot.Store(&sigenergy.Snapshot{
		Plant:      map[string]any{},
		Inverters:  map[string]map[string]any{},
		ACChargers: map[string]map[string]any{},
	})

	return c
}

// SetStore attaches the Postgres-backed integrator store. When set, newly
// registered integrators restore from it, and every tick's integration
// results are persisted back (§4.8 restore-on-start).
func (c *Coordinator) SetStore(store *Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
}

// RegisterIntegrator attaches an Integrator the tick loop will step on every
// tick, after snapshot assembly (§4.8). If a store is attached, the
// integrator restores its persisted total and last-reset time first.
func (c *Coordinator) RegisterIntegrator(i *sigenergy.Integrator) {
	c.mu.Lock()
	store := c.store
	c.integrators[i.SourceSensorKey] = i
	c.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()
	totalKWh, lastResetAt, ok, err := store.LoadIntegratorState(ctx, i.SourceSensorKey)
	if err != nil {
		c.logger.Printf("integration: failed to load persisted state for %q: %v", i.SourceSensorKey, err)
	}
	if ok || err != nil {
		i.Restore(totalKWh, lastResetAt, time.Now())
	}
}

// Snapshot returns the latest published snapshot. It is safe to call
// concurrently with ticking.
func (c *Coordinator) Snapshot() *sigenergy.Snapshot {
	return c.snapshot.Load()
}

// LastUpdateSucceeded reports whether the most recent tick completed within
// its deadline without being forced to keep a stale snapshot.
func (c *Coordinator) LastUpdateSucceeded() bool {
	return c.lastGood.Load()
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	high := c.config.PlantConnection.ScanIntervals.High
	task := &PeriodicTask{
		name:         "PollTick",
		initialDelay: alignedDelay(time.Now(), high),
		interval:     high,
		runFunc: func() {
			c.tick(ctx)
		},
	}
	task.run(ctx, c.stopChan, c.logger)
}

// Stop halts the tick loop and closes every pooled connection.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopChan)
	c.pool.CloseAll()
}

// ForceRefresh runs one out-of-cycle tick, used by the Parameter Writer
// after a successful write (§4.9) so the next observed snapshot reflects
// the change. It may race with the periodic tick loop's own tick; the
// endpoint lock in the connection pool keeps the underlying exchanges safe
// either way.
func (c *Coordinator) ForceRefresh(ctx context.Context) {
	c.tick(ctx)
}

// deviceReadResult carries one device's read-pass outcome back to the tick
// assembler.
type deviceReadResult struct {
	kind   sigenergy.DeviceKind
	name   string
	values map[string]any
	err    error
}

// tick performs one coordinator tick (§4.6): plant read, per-inverter reads,
// per-AC-charger reads concurrently, assembly, integration, publish. The
// whole tick is bounded by tickDeadline; if it is exceeded, the previous
// snapshot is kept and lastGood is cleared.
func (c *Coordinator) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, tickDeadline)
	defer cancel()

	results := make(chan deviceReadResult, 1+len(c.inverters)+len(c.acChargers))
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		values := c.reader.ReadPlant(c.plant)
		results <- deviceReadResult{kind: sigenergy.DeviceKindPlant, values: values}
	}()

	for _, inv := range c.inverters {
		wg.Add(1)
		go func(dev sigenergy.DeviceRecord) {
			defer wg.Done()
			values := c.reader.ReadInverter(dev)
			results <- deviceReadResult{kind: sigenergy.DeviceKindInverter, name: dev.LogicalName, values: values}
		}(inv)
	}
	for _, ac := range c.acChargers {
		wg.Add(1)
		go func(dev sigenergy.DeviceRecord) {
			defer wg.Done()
			values := c.reader.ReadACCharger(dev)
			results <- deviceReadResult{kind: sigenergy.DeviceKindACCharger, name: dev.LogicalName, values: values}
		}(ac)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-tickCtx.Done():
		c.logger.Printf("tick: deadline exceeded, keeping previous snapshot")
		c.lastGood.Store(false)
		return
	}
	close(results)

	snap := &sigenergy.Snapshot{
		Plant:      map[string]any{},
		Inverters:  make(map[string]map[string]any, len(c.inverters)),
		ACChargers: make(map[string]map[string]any, len(c.acChargers)),
		FetchedAt:  time.Now(),
	}
	for _, inv := range c.inverters {
		snap.Inverters[inv.LogicalName] = map[string]any{}
	}
	for _, ac := range c.acChargers {
		snap.ACChargers[ac.LogicalName] = map[string]any{}
	}

	for r := range results {
		switch r.kind {
		case sigenergy.DeviceKindPlant:
			snap.Plant = r.values
			if len(r.values) == 0 {
				snap.Partial = true
			}
		case sigenergy.DeviceKindInverter:
			snap.Inverters[r.name] = r.values
			if len(r.values) == 0 {
				snap.Partial = true
			}
		case sigenergy.DeviceKindACCharger:
			snap.ACChargers[r.name] = r.values
			if len(r.values) == 0 {
				snap.Partial = true
			}
		}
	}

	c.addDerivedValues(snap)
	c.runIntegrations(snap)

	c.snapshot.Store(snap)
	c.lastGood.Store(true)
}

// addDerivedValues computes the pure derived-value functions of §4.7 and
// folds their results back into the just-assembled snapshot, alongside the
// raw registers they're computed from.
func (c *Coordinator) addDerivedValues(snap *sigenergy.Snapshot) {
	if len(snap.Plant) > 0 {
		snap.Plant["grid_import_kw"] = sigenergy.GridImportKW(snap.Plant)
		snap.Plant["grid_export_kw"] = sigenergy.GridExportKW(snap.Plant)
		snap.Plant["consumed_kw"] = sigenergy.ConsumedKW(snap.Plant, c.logger)
	}

	pvStrings := [4][2]string{
		{"pv1_voltage", "pv1_current"},
		{"pv2_voltage", "pv2_current"},
		{"pv3_voltage", "pv3_current"},
		{"pv4_voltage", "pv4_current"},
	}
	for _, inv := range snap.Inverters {
		if len(inv) == 0 {
			continue
		}
		for i, keys := range pvStrings {
			voltageKey, currentKey := keys[0], keys[1]
			if _, ok := inv[voltageKey]; !ok {
				continue
			}
			inv[fmt.Sprintf("pv%d_power_kw", i+1)] = sigenergy.PVStringPowerKW(inv, voltageKey, currentKey, c.logger)
		}
	}
}

// runIntegrations steps every registered Integrator against the freshly
// assembled snapshot (§4.8), then persists each one's total if a store is
// attached. Integration errors never propagate outward; a bad or missing
// input simply skips that integrator's step.
func (c *Coordinator) runIntegrations(snap *sigenergy.Snapshot) {
	c.mu.Lock()
	integrators := make([]*sigenergy.Integrator, 0, len(c.integrators))
	for _, i := range c.integrators {
		integrators = append(integrators, i)
	}
	store := c.store
	c.mu.Unlock()

	now := snap.FetchedAt
	for _, integrator := range integrators {
		integrator.ResetIfMidnight(now)
		value := lookupSnapshotPath(snap, integrator.SourceSensorKey)
		if _, ok := integrator.Step(value, now); !ok {
			c.logger.Printf("integration: skipped %q, missing or non-numeric input", integrator.SourceSensorKey)
			continue
		}
		if store == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
		err := store.SaveIntegratorState(ctx, integrator.SourceSensorKey, integrator.TotalKWh(), now)
		cancel()
		if err != nil {
			c.logger.Printf("integration: failed to persist %q: %v", integrator.SourceSensorKey, err)
		}
	}
}

// lookupSnapshotPath resolves a dotted source sensor key ("plant.pv_power"
// or "inverters.inv_a.pv1_voltage") against a snapshot.
func lookupSnapshotPath(snap *sigenergy.Snapshot, key string) any {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) == 2 && parts[0] == "plant":
		return snap.Plant[parts[1]]
	case len(parts) == 3 && parts[0] == "inverters":
		inv, ok := snap.Inverters[parts[1]]
		if !ok {
			return nil
		}
		return inv[parts[2]]
	case len(parts) == 3 && parts[0] == "ac_chargers":
		ac, ok := snap.ACChargers[parts[1]]
		if !ok {
			return nil
		}
		return ac[parts[2]]
	default:
		return nil
	}
}
