package buildinfo

const Graffiti = "     _ _                 \n  __| | |_ _ __ ___  ___ \n / _` | __| '__/ _ \\/ _ \\\n| (_| | |_| | |  __/  __/\n \\__,_|\\__|_|  \\___|\\___|\n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "DTREE"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

// Banner is printed by every binary on startup; dtree-runs writes it to
// stderr since its stdout is JSON.
func (b buildinfo) Banner(component string) string {
	return Graffiti + b.Name() + " " + component + ": " + b.Time() + ", " + b.Tag() + "\n"
}

var Info buildinfo
