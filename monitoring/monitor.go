// Package monitoring serves the state of a running regression over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/bankcheck/monitoring/web"
	"github.com/sarchlab/bankcheck/regression"
	"github.com/sarchlab/bankcheck/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A ResultSource reports the results of a run so far. regression.Runner is
// a ResultSource.
type ResultSource interface {
	RunID() string
	Results() []regression.Result
}

// A Snapshotter copies its state, so that the copy can be inspected while
// the run keeps changing the original.
type Snapshotter interface {
	Snapshot() any
}

// Monitor turns a regression run into a server, so that its progress can be
// watched from a browser.
type Monitor struct {
	timeTeller sim.TimeTeller
	components []sim.Named
	results    ResultSource
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	profileDuration time.Duration
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{profileDuration: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTimeTeller registers what tells the virtual time of the run.
func (m *Monitor) RegisterTimeTeller(t sim.TimeTeller) {
	m.timeTeller = t
}

// RegisterComponent registers a component to be inspected. Components that
// change during a run must be Snapshotters.
func (m *Monitor) RegisterComponent(c sim.Named) {
	m.components = append(m.components, c)
}

// RegisterResultSource registers where check results come from.
func (m *Monitor) RegisterResultSource(s ResultSource) {
	m.results = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes that the server serves.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/results", m.listResults)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring regression with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return url
}

// OpenInBrowser shows the monitor page in the default browser.
func OpenInBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
	}
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := sim.VTimeInSec(0)
	if m.timeTeller != nil {
		now = m.timeTeller.CurrentTime()
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	var root any = component
	if s, ok := component.(Snapshotter); ok {
		root = s.Snapshot()
	}

	buf := bytes.NewBuffer(nil)
	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(1)
	dieOnErr(serializer.Serialize(buf))

	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resultRsp struct {
	Phase    int    `json:"phase"`
	Step     string `json:"step"`
	Region   string `json:"region"`
	Seed     uint32 `json:"seed"`
	Expect   string `json:"expect"`
	Outcome  string `json:"outcome"`
	Deviates bool   `json:"deviates"`
	Detail   string `json:"detail,omitempty"`
}

type resultsRsp struct {
	RunID   string      `json:"run_id"`
	Results []resultRsp `json:"results"`
}

func (m *Monitor) listResults(w http.ResponseWriter, _ *http.Request) {
	rsp := resultsRsp{Results: []resultRsp{}}

	if m.results != nil {
		rsp.RunID = m.results.RunID()

		for _, r := range m.results.Results() {
			region := r.Step.Region.String()
			if r.Step.Kind == regression.StepSwap {
				region = r.Step.Swap.String()
			}

			rsp.Results = append(rsp.Results, resultRsp{
				Phase:    r.Step.Phase,
				Step:     r.Step.Kind.String(),
				Region:   region,
				Seed:     r.Step.Seed,
				Expect:   r.Step.Expect.String(),
				Outcome:  r.Outcome.String(),
				Deviates: r.Deviates(),
				Detail:   r.Detail(),
			})
		}
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
