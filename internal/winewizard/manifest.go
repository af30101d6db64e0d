package winewizard

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/ini.v1"
)

// Package types as declared by the repository's Type key.
const (
	PackageTypePackage = 0
	PackageTypeWine    = 1
)

// Function is a shared shell helper emitted as ww_<Name>.
type Function struct {
	Name string
	Body string
}

// Package is one installable unit of an architecture group.
type Package struct {
	Name     string
	Type     int
	Check    string
	Install  string
	Files    []string
	Required []string
}

// FileEntry describes a cached artifact and where to acquire it.
type FileEntry struct {
	Name     string
	Sum      string
	Mirrors  []string
	Recovery []string
}

// Repository is the parsed main.wwrepo document. It is immutable after load.
type Repository struct {
	Version   string
	Init      string
	Done      string
	Functions []Function

	packages  map[string][]*Package // arch -> packages in declaration order
	index     map[string]map[string]*Package
	files     map[string]FileEntry
	fileOrder []string
}

// Packages returns the packages of an architecture group in declaration order.
func (r *Repository) Packages(arch string) []*Package {
	return r.packages[arch]
}

// Package looks up name in the architecture group.
func (r *Repository) Package(arch, name string) (*Package, bool) {
	p, ok := r.index[arch][name]
	return p, ok
}

// File looks up a file entry by name.
func (r *Repository) File(name string) (FileEntry, bool) {
	f, ok := r.files[name]
	return f, ok
}

// FileNames lists every file the repository declares.
func (r *Repository) FileNames() []string {
	return append([]string(nil), r.fileOrder...)
}

// Architectures lists the architecture groups that declare packages.
func (r *Repository) Architectures() []string {
	archs := make([]string, 0, len(r.packages))
	for a := range r.packages {
		archs = append(archs, a)
	}
	sort.Strings(archs)
	return archs
}

// CheckVersion fails with *VersionMismatchError unless the repository targets appVersion.
func (r *Repository) CheckVersion(appVersion string) error {
	if r.Version != appVersion {
		return &VersionMismatchError{Current: appVersion, Required: r.Version}
	}
	return nil
}

// LoadRepository reads and parses a repository file, unpacking it first when
// the name carries a compression suffix.
func LoadRepository(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repository: %w", err)
	}
	data, err = decompressBySuffix(path, data)
	if err != nil {
		return nil, manifestErrorf("repository %s: %v", path, err)
	}
	return ParseRepository(data)
}

// ParseRepository parses the INI repository document.
func ParseRepository(data []byte) (*Repository, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		IgnoreContinuation:  true,
	}, data)
	if err != nil {
		return nil, manifestErrorf("incorrect repository file format: %v", err)
	}

	top := f.Section(ini.DefaultSection)
	r := &Repository{
		Version:  strings.TrimSpace(top.Key("WineWizardVersion").String()),
		Init:     top.Key("Init").String(),
		Done:     top.Key("Done").String(),
		packages: make(map[string][]*Package),
		index:    make(map[string]map[string]*Package),
		files:    make(map[string]FileEntry),
	}
	if r.Version == "" {
		return nil, manifestErrorf("incorrect repository file format: missing WineWizardVersion")
	}

	for _, sec := range f.Sections() {
		group, name, ok := strings.Cut(sec.Name(), ".")
		if !ok || name == "" {
			continue
		}
		// Package and file names contain dots, which ini treats as parent
		// sections; only keys written in the section itself count.
		own := sec.KeysHash()
		switch {
		case group == "Functions":
			r.Functions = append(r.Functions, Function{Name: name, Body: own["Body"]})
		case group == "Files":
			if _, dup := r.files[name]; !dup {
				r.fileOrder = append(r.fileOrder, name)
			}
			r.files[name] = FileEntry{
				Name:     name,
				Sum:      strings.TrimSpace(own["Sum"]),
				Mirrors:  listValue(own["Mirrors"]),
				Recovery: listValue(own["RE"]),
			}
		case strings.HasPrefix(group, "Packages") && len(group) > len("Packages"):
			arch := strings.TrimPrefix(group, "Packages")
			typ := PackageTypePackage
			if v, set := own["Type"]; set {
				typ, err = strconv.Atoi(strings.TrimSpace(v))
				if err != nil {
					return nil, manifestErrorf("package %s/%s: invalid Type: %v", arch, name, err)
				}
			}
			p := &Package{
				Name:     name,
				Type:     typ,
				Check:    own["Check"],
				Install:  own["Install"],
				Files:    listValue(own["Files"]),
				Required: listValue(own["Required"]),
			}
			if r.index[arch] == nil {
				r.index[arch] = make(map[string]*Package)
			}
			if _, dup := r.index[arch][name]; !dup {
				r.packages[arch] = append(r.packages[arch], p)
			} else {
				for i, old := range r.packages[arch] {
					if old.Name == name {
						r.packages[arch][i] = p
					}
				}
			}
			r.index[arch][name] = p
		}
	}
	return r, nil
}

func listValue(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Solution is the per-install selection of software, wine versions and scripts.
type Solution struct {
	Name           string   `json:"name"`
	BeforeWine     string   `json:"bw"`
	AfterWine      string   `json:"aw"`
	BeforePackages []string `json:"bp"`
	AfterPackages  []string `json:"ap"`
	BeforeScript   string   `json:"bs"`
	AfterScript    string   `json:"as"`
}

var solutionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	data, err := embeddedAssets.ReadFile("assets/solution.schema.json")
	if err != nil {
		return nil, fmt.Errorf("read solution schema: %w", err)
	}
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile solution schema: %w", err)
	}
	return schema, nil
})

// LoadSolution parses and validates a solution document.
func LoadSolution(data []byte) (*Solution, error) {
	if !json.Valid(data) {
		return nil, manifestErrorf("incorrect solution file format")
	}
	schema, err := solutionSchema()
	if err != nil {
		return nil, err
	}
	if result := schema.ValidateJSON(data); !result.IsValid() {
		return nil, manifestErrorf("incorrect solution file format: %v", result.Errors)
	}
	var sol Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, manifestErrorf("incorrect solution file format: %v", err)
	}
	return &sol, nil
}
