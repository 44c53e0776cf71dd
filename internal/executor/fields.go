package executor

import (
	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// collectedField groups the field nodes sharing one response name.
type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

// collectedFieldMap keeps response names in first-seen order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

func (m *collectedFieldMap) add(responseName string, f *language.Field) {
	if i, ok := m.index[responseName]; ok {
		m.fields[i].Fields = append(m.fields[i].Fields, f)
		return
	}
	m.index[responseName] = len(m.fields)
	m.fields = append(m.fields, collectedField{ResponseName: responseName, Fields: []*language.Field{f}})
}

func (m *collectedFieldMap) orderedFields() []collectedField {
	return m.fields
}

// collectFields flattens selectionSet for objectType, honouring @skip,
// @include and fragment type conditions. Each named fragment is expanded
// at most once.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	m := &collectedFieldMap{index: make(map[string]int)}
	c := collector{state: state, objectType: objectType, out: m, seen: make(map[string]bool)}
	c.walk(selectionSet)
	return m
}

type collector struct {
	state      *executionState
	objectType *schema.Type
	out        *collectedFieldMap
	seen       map[string]bool
}

func (c *collector) walk(selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(c.state, sel.Directives) {
				continue
			}
			name := sel.Alias
			if name == "" {
				name = sel.Name
			}
			c.out.add(name, sel)

		case *language.InlineFragment:
			if shouldIncludeNode(c.state, sel.Directives) &&
				doesFragmentTypeApply(c.state.schema, sel.TypeCondition, c.objectType) {
				c.walk(sel.SelectionSet)
			}

		case *language.FragmentSpread:
			if !shouldIncludeNode(c.state, sel.Directives) || c.seen[sel.Name] {
				continue
			}
			c.seen[sel.Name] = true
			def := c.state.document.Fragments.ForName(sel.Name)
			if def == nil ||
				!doesFragmentTypeApply(c.state.schema, def.TypeCondition, c.objectType) ||
				!shouldIncludeNode(c.state, def.Directives) {
				continue
			}
			c.walk(def.SelectionSet)
		}
	}
}

// shouldIncludeNode evaluates @skip(if:) and @include(if:).
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	if skip, set := directiveFlag(state, directives.ForName("skip")); set && skip {
		return false
	}
	if include, set := directiveFlag(state, directives.ForName("include")); set && !include {
		return false
	}
	return true
}

// directiveFlag reads the boolean "if" argument of d. set is false when d
// is nil or the argument is missing or not a boolean.
func directiveFlag(state *executionState, d *language.Directive) (value, set bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, set = valueFromASTWithVars(arg.Value, state.variableValues).(bool)
	return value, set
}

// doesFragmentTypeApply reports whether a fragment with the given type
// condition applies to objectType, including interface and union conditions.
func doesFragmentTypeApply(sch *schema.Schema, condition string, objectType *schema.Type) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	cond := sch.Lookup(condition)
	if cond == nil {
		return false
	}
	var names []string
	var want string
	switch cond.Kind {
	case schema.TypeKindInterface:
		names, want = objectType.Interfaces, condition
	case schema.TypeKindUnion:
		names, want = cond.PossibleTypes, objectType.Name
	}
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func getFieldDefinition(objectType *schema.Type, name string) *schema.Field {
	return objectType.FieldByName(name)
}
