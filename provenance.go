package dfxml

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Function variables for testing injection.
var (
	readBuildInfo = debug.ReadBuildInfo
	goVersion     = runtime.Version
)

// AddProvenance writes the creator block: program, version, the optional
// commit, then the build and execution environments. argv is the
// process's command line, usually os.Args.
func (w *Writer) AddProvenance(program, version, commit string, argv []string) error {
	w.Push("creator", Attr{Name: "version", Value: "1.0"})
	w.Leaf("program", program)
	w.Leaf("version", version)
	if commit != "" {
		w.Leaf("commit", commit)
	}
	w.AddBuildEnvironment()
	w.AddExecutionEnvironment(MakeCommandLine(argv))
	return w.Pop("creator")
}

// AddBuildEnvironment describes the toolchain and the modules linked into
// the running binary.
func (w *Writer) AddBuildEnvironment() error {
	w.Push("build_environment")
	w.Leaf("compiler", goVersion())
	if info, ok := readBuildInfo(); ok {
		settings := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
		if v := settings["vcs.time"]; v != "" {
			w.Leaf("compilation_date", v)
		}
		for _, dep := range info.Deps {
			if dep.Replace != nil {
				dep = dep.Replace
			}
			w.Leaf("library", "", Attr{Name: "name", Value: dep.Path}, Attr{Name: "version", Value: dep.Version})
		}
		if rev := settings["vcs.revision"]; rev != "" {
			w.Leaf("git", "", Attr{Name: "commit", Value: rev})
		}
	}
	return w.Pop("build_environment")
}

// AddExecutionEnvironment describes the machine, the user and the
// invocation. Elements the host cannot report are left out.
func (w *Writer) AddExecutionEnvironment(commandLine string) error {
	host := w.cfg.host
	w.Push("execution_environment")
	w.AddCPUID()
	if u, ok := host.Uname(); ok {
		w.Leaf("os_sysname", u.Sysname)
		w.Leaf("os_release", u.Release)
		w.Leaf("os_version", u.Version)
		w.Leaf("host", u.Nodename)
		w.Leaf("arch", u.Machine)
	} else {
		w.Leaf("os_sysname", runtime.GOOS)
		w.Leaf("arch", runtime.GOARCH)
	}
	w.Leaf("command_line", commandLine)
	if u, ok := host.User(); ok {
		if u.UID >= 0 {
			w.LeafInt("uid", int64(u.UID))
		}
		if u.Username != "" {
			w.Leaf("username", u.Username)
		}
	}
	w.Leaf("start_time", w.cfg.clock.Now().UTC().Format(timestampLayout))
	return w.Pop("execution_environment")
}

// AddCPUID writes the <cpuid> block when the processor can be identified.
func (w *Writer) AddCPUID() error {
	c, ok := w.cfg.host.CPU()
	if !ok {
		return w.Err()
	}
	w.Push("cpuid")
	w.Leaf("identification", c.Vendor)
	w.Leaf("brand", c.Brand)
	w.LeafInt("family", int64(c.Family))
	w.LeafInt("model", int64(c.Model))
	w.LeafInt("clflush_size", int64(c.CacheLine))
	w.LeafInt("nproc", int64(c.LogicalCores))
	w.LeafInt("ncores", int64(c.PhysicalCores))
	w.LeafInt("L1_cache_size", int64(c.L1DataCache))
	return w.Pop("cpuid")
}

// AddRusage writes the process's resource usage and the wall-clock time
// since the writer started.
func (w *Writer) AddRusage() error {
	ru, ok := w.cfg.host.Rusage()
	if !ok {
		return w.Err()
	}
	w.Push("rusage")
	w.LeafTimeval("utime", ru.Utime)
	w.LeafTimeval("stime", ru.Stime)
	w.LeafInt("maxrss", ru.MaxRSS)
	w.LeafInt("minflt", ru.MinFlt)
	w.LeafInt("majflt", ru.MajFlt)
	w.LeafInt("nswap", ru.NSwap)
	w.LeafInt("inblock", ru.InBlock)
	w.LeafInt("oublock", ru.OuBlock)
	w.mu.Lock()
	clocktime := timevalOf(w.cfg.clock.Now()).sub(timevalOf(w.t0))
	w.mu.Unlock()
	w.leaf("clocktime", clocktime.String(), nil)
	return w.Pop("rusage")
}

// AddTimestamp writes <timestamp name= delta= total=/>, where delta is the
// time since the previous AddTimestamp and total the time since the
// writer started, both as seconds.microseconds.
func (w *Writer) AddTimestamp(name string) error {
	w.mu.Lock()
	t1 := w.cfg.clock.Now()
	now := timevalOf(t1)
	delta := now.sub(timevalOf(w.tLast))
	total := now.sub(timevalOf(w.t0))
	w.tLast = t1
	w.mu.Unlock()
	return w.leaf("timestamp", "", []Attr{
		{Name: "name", Value: name},
		{Name: "delta", Value: delta.String()},
		{Name: "total", Value: total.String()},
	})
}

// Elapsed returns the time since the writer started.
func (w *Writer) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.clock.Now().Sub(w.t0)
}

// MakeCommandLine joins argv with spaces, wrapping any argument that
// contains a space in double quotes.
func MakeCommandLine(argv []string) string {
	var b strings.Builder
	for i, arg := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		if strings.Contains(arg, " ") {
			b.WriteByte('"')
			b.WriteString(arg)
			b.WriteByte('"')
		} else {
			b.WriteString(arg)
		}
	}
	return b.String()
}

// ParseCommandLine splits a command_line value back into arguments using
// POSIX shell quoting rules. It inverts MakeCommandLine only for
// arguments free of '"', '\' and '$', since MakeCommandLine merely wraps
// arguments containing a space in double quotes.
func ParseCommandLine(s string) ([]string, error) {
	return shellquote.Split(s)
}

// XMLMap renders m as a single-line element named outer whose children
// are the map entries in key order, values escaped.
func XMLMap(m TagMap, outer string, attrs ...Attr) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(outer)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(Escape(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for k, v := range m.All() {
		b.WriteString("<" + k + ">")
		b.WriteString(Escape(v))
		b.WriteString("</" + k + ">")
	}
	b.WriteString("</" + outer + ">")
	return b.String()
}
