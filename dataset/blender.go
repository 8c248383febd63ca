package dataset

import (
	"fireant/domain"
)

// Mapping equates a primary dimension with a secondary one.
type Mapping struct {
	Primary   *Field
	Secondary *Field
}

type blend struct {
	primary   *DataSet
	secondary *DataSet
	mappings  []Mapping
}

// Blend composes primary with secondary. The blend exposes primary's fields,
// secondary fields whose alias does not collide, and extra fields defined over
// either side (use secondary.Ref to reach a shadowed secondary field). An
// empty mapping cross-joins the two sides. Blends can be blended again.
func Blend(name string, primary, secondary *DataSet, mappings []Mapping, extra ...*Field) (*DataSet, error) {
	if primary == nil || secondary == nil {
		return nil, domain.ErrDataSet("blend %q requires a primary and a secondary dataset", name)
	}
	if name == "" {
		name = primary.name + "+" + secondary.name
	}
	for _, m := range mappings {
		if m.Primary == nil || m.Secondary == nil {
			return nil, domain.ErrDataSet("blend %q has an incomplete mapping", name)
		}
		if !primary.contains(m.Primary) {
			return nil, domain.ErrDataSet("blend %q maps %q which is not a field of %q", name, m.Primary.Alias, primary.name)
		}
		if !secondary.contains(m.Secondary) {
			return nil, domain.ErrDataSet("blend %q maps %q which is not a field of %q", name, m.Secondary.Alias, secondary.name)
		}
		if m.Primary.DataType != m.Secondary.DataType {
			return nil, domain.ErrDataSet("blend %q maps %s field %q onto %s field %q",
				name, m.Primary.DataType, m.Primary.Alias, m.Secondary.DataType, m.Secondary.Alias)
		}
		if m.Primary.IsAggregate() || m.Secondary.IsAggregate() {
			return nil, domain.ErrDataSet("blend %q maps aggregate field %q", name, m.Primary.Alias)
		}
	}

	ds := &DataSet{
		name:    name,
		table:   primary.table,
		byAlias: map[string]*Field{},
		blend:   &blend{primary: primary, secondary: secondary, mappings: mappings},
	}
	if primary.annotation != nil {
		ds.annotation = primary.annotation
	}
	ds.returnMetadata = primary.returnMetadata
	for _, side := range []*DataSet{primary, secondary} {
		for _, f := range side.fields {
			if _, taken := ds.byAlias[f.Alias]; taken {
				continue
			}
			ds.fields = append(ds.fields, f)
			ds.byAlias[f.Alias] = f
		}
	}
	for _, f := range extra {
		if err := ds.register(f, false); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// IsBlended reports whether the dataset composes other datasets.
func (ds *DataSet) IsBlended() bool { return ds.blend != nil }

// Leaves returns the non-blended datasets of the blend tree, primary first,
// each exactly once. A plain dataset is its own single leaf.
func (ds *DataSet) Leaves() []*DataSet {
	var out []*DataSet
	seen := map[*DataSet]bool{}
	var walk func(*DataSet)
	walk = func(d *DataSet) {
		if d.blend == nil {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
			return
		}
		walk(d.blend.primary)
		walk(d.blend.secondary)
	}
	walk(ds)
	return out
}

// contains reports whether f belongs to any dataset of the blend tree,
// including fields shadowed in the blended namespace.
func (ds *DataSet) contains(f *Field) bool {
	for _, d := range ds.allDatasets() {
		if f.owner == d {
			return true
		}
	}
	return false
}

func (ds *DataSet) allDatasets() []*DataSet {
	out := []*DataSet{ds}
	if ds.blend != nil {
		out = append(out, ds.blend.primary.allDatasets()...)
		out = append(out, ds.blend.secondary.allDatasets()...)
	}
	return out
}

// Mappings returns every dimension mapping in the blend tree.
func (ds *DataSet) Mappings() []Mapping {
	if ds.blend == nil {
		return nil
	}
	out := append([]Mapping{}, ds.blend.primary.Mappings()...)
	out = append(out, ds.blend.secondary.Mappings()...)
	return append(out, ds.blend.mappings...)
}

// MappedField finds the field of leaf that f is mapped onto, following
// mappings transitively. It returns f itself when leaf owns it and nil when
// no mapping reaches leaf.
func (ds *DataSet) MappedField(f *Field, leaf *DataSet) *Field {
	if f.owner == leaf {
		return f
	}
	adjacent := map[*Field][]*Field{}
	for _, m := range ds.Mappings() {
		adjacent[m.Primary] = append(adjacent[m.Primary], m.Secondary)
		adjacent[m.Secondary] = append(adjacent[m.Secondary], m.Primary)
	}
	seen := map[*Field]bool{f: true}
	queue := []*Field{f}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.owner == leaf {
			return cur
		}
		for _, next := range adjacent[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return nil
}
