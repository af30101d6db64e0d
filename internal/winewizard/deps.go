package winewizard

import (
	"fmt"
	"sort"
	"strings"
)

// FileSet is a set of artifact file names.
type FileSet map[string]struct{}

func (s FileSet) add(name string) { s[name] = struct{}{} }

// Has reports membership.
func (s FileSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// resolver walks the Required graph of one architecture group.
type resolver struct {
	repo  *Repository
	arch  string
	state map[string]visitState
	stack []string
	files FileSet
}

func newResolver(repo *Repository, arch string) *resolver {
	return &resolver{
		repo:  repo,
		arch:  arch,
		state: make(map[string]visitState),
		files: make(FileSet),
	}
}

// visit adds the files of pkgName and everything it requires. Unknown
// packages contribute nothing. Reaching a package that is still being
// expanded means the graph has a cycle.
func (r *resolver) visit(pkgName string) error {
	switch r.state[pkgName] {
	case done:
		return nil
	case inProgress:
		return fmt.Errorf("%w: %s -> %s", ErrDependencyCycle, strings.Join(r.stack, " -> "), pkgName)
	}

	pkg, ok := r.repo.Package(r.arch, pkgName)
	if !ok {
		debugf("package %s not declared for arch %s, skipping\n", pkgName, r.arch)
		r.state[pkgName] = done
		return nil
	}

	r.state[pkgName] = inProgress
	r.stack = append(r.stack, pkgName)
	for _, f := range pkg.Files {
		r.files.add(f)
	}
	for _, dep := range pkg.Required {
		if err := r.visit(dep); err != nil {
			return err
		}
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.state[pkgName] = done
	return nil
}

// RequiredFiles returns the transitive set of files needed by pkgName.
func RequiredFiles(pkgName, arch string, repo *Repository) (FileSet, error) {
	r := newResolver(repo, arch)
	if err := r.visit(pkgName); err != nil {
		return nil, err
	}
	return r.files, nil
}

// Closure unions RequiredFiles over several roots.
func Closure(repo *Repository, arch string, roots ...string) (FileSet, error) {
	r := newResolver(repo, arch)
	for _, root := range roots {
		if root == "" {
			continue
		}
		if err := r.visit(root); err != nil {
			return nil, err
		}
	}
	return r.files, nil
}

// SolutionClosure collects the files for both wine versions and every package of sol.
func SolutionClosure(repo *Repository, arch string, sol *Solution) (FileSet, error) {
	roots := []string{sol.BeforeWine, sol.AfterWine}
	roots = append(roots, sol.BeforePackages...)
	roots = append(roots, sol.AfterPackages...)
	return Closure(repo, arch, roots...)
}
