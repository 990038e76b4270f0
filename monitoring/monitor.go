// Package monitoring serves a finished handoff over HTTP so that the
// descriptors, the parameters, and the reserved region can be inspected.
package monitoring

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/bootchain/boot"
	"github.com/sarchlab/bootchain/hooking"
)

// Monitor turns a boot stage into a server that reports what the stage
// handed off.
type Monitor struct {
	stage      *boot.Stage
	result     *boot.Result
	components []hooking.Hookable
	portNumber int

	eventsLock sync.Mutex
	events     []Event
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
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

// RegisterStage registers the stage to report. Its components can be
// inspected by name.
func (m *Monitor) RegisterStage(s *boot.Stage) {
	m.stage = s
	m.components = append(m.components, s.Handoff(), s.Cache())
}

// RegisterResult registers the outcome of the stage run.
func (m *Monitor) RegisterResult(r *boot.Result) {
	m.result = r
}

// Handler returns the routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/platform", m.platform)
	r.HandleFunc("/api/state", m.state)
	r.HandleFunc("/api/loadinfo", m.loadInfo)
	r.HandleFunc("/api/params", m.params)
	r.HandleFunc("/api/region", m.region)
	r.HandleFunc("/api/events", m.listEvents)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

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
	fmt.Fprintf(os.Stderr, "Monitoring handoff with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) platform(w http.ResponseWriter, _ *http.Request) {
	if !m.requireStage(w) {
		return
	}

	writeJSON(w, m.stage.Platform())
}

type stateRsp struct {
	Phase       string `json:"phase"`
	ActiveTable uint64 `json:"active_table"`
	Published   uint64 `json:"published"`
	Descriptors int    `json:"descriptors"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	if !m.requireResult(w) {
		return
	}

	st := m.result.State
	writeJSON(w, stateRsp{
		Phase:       st.Phase.String(),
		ActiveTable: st.ActiveTable,
		Published:   st.Published,
		Descriptors: st.NumDescriptors,
	})
}

func (m *Monitor) loadInfo(w http.ResponseWriter, r *http.Request) {
	if !m.requireResult(w) {
		return
	}

	switch r.URL.Query().Get("view") {
	case "", "relocated":
		writeJSON(w, m.result.RelocatedLoadInfo)
	case "original":
		writeJSON(w, m.result.LoadInfo)
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Error: view must be `original` or `relocated`")
	}
}

func (m *Monitor) params(w http.ResponseWriter, _ *http.Request) {
	if !m.requireResult(w) {
		return
	}

	writeJSON(w, m.result.Next.Params)
}

// region dumps the reserved region as the next stage sees it in DRAM.
func (m *Monitor) region(w http.ResponseWriter, _ *http.Request) {
	if !m.requireStage(w) {
		return
	}

	layout := m.stage.Handoff().Region().Layout()

	data, err := m.stage.Storage().Read(layout.Base, layout.Required())
	dieOnErr(err)

	fmt.Fprintf(w, "%x:\n%s", layout.Base, hex.Dump(data))
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

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) hooking.Hookable {
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

func (m *Monitor) requireStage(w http.ResponseWriter) bool {
	if m.stage != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprint(w, "No stage registered")

	return false
}

func (m *Monitor) requireResult(w http.ResponseWriter) bool {
	if m.result != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprint(w, "The stage has not finished its handoff")

	return false
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
	dieOnErr(err)

	time.Sleep(time.Second)

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
