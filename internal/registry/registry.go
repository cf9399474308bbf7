// SPDX-License-Identifier: MPL-2.0

// Package registry holds the loaded entity type descriptors and transform
// bindings and answers lookups against them.
package registry

import (
	"sort"
	"sync"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/semver"
	"github.com/graftlabs/graft/pkg/transform"
)

// Binding is a transform spec attached to the registry, its version
// requirement parsed and ready to match against resolved entity versions.
type Binding struct {
	// Spec is the registered transform.
	Spec *transform.Spec
	// Requires is the parsed version requirement of the spec.
	Requires *semver.ConstraintSet
}

// Wildcard reports whether the binding targets every entity type.
func (b *Binding) Wildcard() bool { return b.Spec.Target == transform.Wildcard }

// Registry maps entity type identifiers to their versioned descriptors and
// transform bindings. Registration happens during the load phase; lookups
// dominate afterwards, so reads take a shared lock.
type Registry struct {
	mu sync.RWMutex
	// types holds descriptors per identifier, keyed by canonical version.
	types map[entity.ID]map[string]*entity.Type
	// versions holds the parsed versions per identifier, highest first.
	versions map[entity.ID][]*semver.Version
	// bindings holds transform bindings per target identifier. Wildcard
	// bindings live under their own key, so they only ever collide with
	// other wildcard bindings.
	bindings map[entity.ID][]*Binding
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		types:    make(map[entity.ID]map[string]*entity.Type),
		versions: make(map[entity.ID][]*semver.Version),
		bindings: make(map[entity.ID][]*Binding),
	}
}

// RegisterEntity adds an entity type descriptor. Registering the same
// identifier and version twice fails with fault.DuplicateEntityError;
// distinct versions of one identifier coexist.
func (r *Registry) RegisterEntity(t *entity.Type) error {
	if err := t.Validate(); err != nil {
		return err
	}
	v, err := semver.ParseVersion(t.Version)
	if err != nil {
		return err
	}
	key := v.Canonical()

	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion := r.types[t.ID]
	if byVersion == nil {
		byVersion = make(map[string]*entity.Type)
		r.types[t.ID] = byVersion
	}
	if _, exists := byVersion[key]; exists {
		return &fault.DuplicateEntityError{ID: t.ID.String(), Version: key}
	}
	byVersion[key] = t
	r.versions[t.ID] = append(r.versions[t.ID], v)
	semver.SortVersions(r.versions[t.ID])
	return nil
}

// RegisterTransform binds a transform spec to its target. Two bindings on
// the same (target, label) pair whose version requirements overlap fail with
// fault.TransformCollisionError, whichever of the two registers second.
// The target entity type does not need to be registered yet.
func (r *Registry) RegisterTransform(spec *transform.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	req, err := semver.ParseConstraintSet(spec.Requires)
	if err != nil {
		return err
	}
	b := &Binding{Spec: spec, Requires: req}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.collideLocked(b); err != nil {
		return err
	}
	r.bindings[spec.Target] = append(r.bindings[spec.Target], b)
	return nil
}

func (r *Registry) collideLocked(b *Binding) error {
	for _, existing := range r.bindings[b.Spec.Target] {
		if existing.Spec.Label != b.Spec.Label {
			continue
		}
		if !semver.Overlaps(existing.Requires, b.Requires) {
			continue
		}
		return &fault.TransformCollisionError{
			Target: b.Spec.Target.String(),
			Label:  b.Spec.Label.String(),
			First:  existing.Requires.String(),
			Second: b.Requires.String(),
		}
	}
	return nil
}

// Merge adds every descriptor and binding of other to the registry. The whole
// batch is checked first and applied only if no descriptor duplicates a
// registered one and no binding collides, so a failed merge leaves the
// registry untouched. The merged registry is read without locking; callers
// use a private staging registry and hand it over.
func (r *Registry) Merge(other *Registry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, byVersion := range other.types {
		for key := range byVersion {
			if _, exists := r.types[id][key]; exists {
				return &fault.DuplicateEntityError{ID: id.String(), Version: key}
			}
		}
	}
	// Bindings were checked against each other when they registered into the
	// staging registry, so only the resident set needs scanning.
	for _, bs := range other.bindings {
		for _, b := range bs {
			if err := r.collideLocked(b); err != nil {
				return err
			}
		}
	}

	for id, byVersion := range other.types {
		dst := r.types[id]
		if dst == nil {
			dst = make(map[string]*entity.Type, len(byVersion))
			r.types[id] = dst
		}
		for key, t := range byVersion {
			dst[key] = t
		}
		r.versions[id] = append(r.versions[id], other.versions[id]...)
		semver.SortVersions(r.versions[id])
	}
	for target, bs := range other.bindings {
		r.bindings[target] = append(r.bindings[target], bs...)
	}
	return nil
}

// Entity resolves a reference to a descriptor. A bare reference resolves to
// the highest registered version, a pinned reference to that exact version.
// Misses fail with fault.EntityNotFoundError; for a pinned miss on a known
// identifier the error lists the versions that are registered.
func (r *Registry) Entity(ref entity.Ref) (*entity.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(ref)
}

func (r *Registry) resolveLocked(ref entity.Ref) (*entity.Type, error) {
	byVersion := r.types[ref.ID]
	if len(byVersion) == 0 {
		return nil, &fault.EntityNotFoundError{Ref: ref.String()}
	}
	if !ref.Pinned() {
		return byVersion[semver.Highest(r.versions[ref.ID]).Canonical()], nil
	}
	v, err := semver.ParseVersion(ref.Version)
	if err != nil {
		return nil, &fault.EntityNotFoundError{Ref: ref.String(), Versions: r.versionKeysLocked(ref.ID)}
	}
	t, ok := byVersion[v.Canonical()]
	if !ok {
		return nil, &fault.EntityNotFoundError{Ref: ref.String(), Versions: r.versionKeysLocked(ref.ID)}
	}
	return t, nil
}

func (r *Registry) versionKeysLocked(id entity.ID) []string {
	vs := r.versions[id]
	keys := make([]string, len(vs))
	for i, v := range vs {
		keys[i] = v.Canonical()
	}
	return keys
}

// Entities returns every registered descriptor, ordered by identifier and
// then by version, highest first.
func (r *Registry) Entities() []*entity.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]entity.ID, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*entity.Type
	for _, id := range ids {
		for _, v := range r.versions[id] {
			out = append(out, r.types[id][v.Canonical()])
		}
	}
	return out
}

// Versions returns the registered versions of an identifier, highest first.
func (r *Registry) Versions(id entity.ID) []*semver.Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs := r.versions[id]
	out := make([]*semver.Version, len(vs))
	copy(out, vs)
	return out
}

// Transforms resolves a reference and returns the bindings applicable to it:
// typed bindings on its identifier plus wildcard bindings, filtered to those
// whose requirement admits the resolved version. The result is ordered by
// label, with a typed binding ahead of a wildcard one carrying the same
// label.
func (r *Registry) Transforms(ref entity.Ref) ([]*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.resolveLocked(ref)
	if err != nil {
		return nil, err
	}
	v, err := semver.ParseVersion(t.Version)
	if err != nil {
		return nil, err
	}
	return r.matchingLocked(t.ID, v), nil
}

// Transform resolves a reference and returns its binding for a label. A
// typed binding shadows a wildcard binding with the same label. Misses fail
// with fault.TransformNotFoundError listing the labels that would have
// matched.
func (r *Registry) Transform(ref entity.Ref, label string) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.resolveLocked(ref)
	if err != nil {
		return nil, err
	}
	v, err := semver.ParseVersion(t.Version)
	if err != nil {
		return nil, err
	}
	matches := r.matchingLocked(t.ID, v)
	for _, b := range matches {
		if b.Spec.Label.String() == label {
			return b, nil
		}
	}

	seen := make(map[entity.ID]bool, len(matches))
	available := make([]string, 0, len(matches))
	for _, b := range matches {
		if seen[b.Spec.Label] {
			continue
		}
		seen[b.Spec.Label] = true
		available = append(available, b.Spec.Label.String())
	}
	return nil, &fault.TransformNotFoundError{Entity: t.Key(), Label: label, Available: available}
}

func (r *Registry) matchingLocked(id entity.ID, v *semver.Version) []*Binding {
	var out []*Binding
	for _, b := range r.bindings[id] {
		if b.Requires.Matches(v) {
			out = append(out, b)
		}
	}
	for _, b := range r.bindings[transform.Wildcard] {
		if b.Requires.Matches(v) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Spec.Label != out[j].Spec.Label {
			return out[i].Spec.Label < out[j].Spec.Label
		}
		return !out[i].Wildcard() && out[j].Wildcard()
	})
	return out
}

// Bindings returns every registered binding, ordered by target, label, and
// requirement.
func (r *Registry) Bindings() []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Binding
	for _, bs := range r.bindings {
		out = append(out, bs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Spec.Target != out[j].Spec.Target {
			return out[i].Spec.Target < out[j].Spec.Target
		}
		if out[i].Spec.Label != out[j].Spec.Label {
			return out[i].Spec.Label < out[j].Spec.Label
		}
		return out[i].Requires.String() < out[j].Requires.String()
	})
	return out
}
