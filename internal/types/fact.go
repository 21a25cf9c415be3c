package types

import "github.com/funvibe/semant/internal/db"

// TyValue wraps a Ty as a db.Extension fact payload (spec §3, reserved fact
// name "type" and friends).
func TyValue(t Ty) db.Value {
	return db.Extension{
		Tag: "type",
		Val: t,
		EqFn: func(a, b any) bool {
			return Equal(a.(Ty), b.(Ty))
		},
	}
}

// AsTy unwraps a db.Extension produced by TyValue, or reports false if v is
// not a Ty-tagged extension.
func AsTy(v db.Value) (Ty, bool) {
	ext, ok := v.(db.Extension)
	if !ok || ext.Tag != "type" {
		return nil, false
	}
	t, ok := ext.Val.(Ty)
	return t, ok
}

// SubstitutionsValue wraps Substitutions as a fact payload (reserved fact
// name "substitutions", spec §6).
func SubstitutionsValue(s Substitutions) db.Value {
	return db.Extension{
		Tag: "substitutions",
		Val: s,
		EqFn: func(a, b any) bool {
			sa, sb := a.(Substitutions), b.(Substitutions)
			oa, ob := sa.Order(), sb.Order()
			if len(oa) != len(ob) {
				return false
			}
			for i, k := range oa {
				if ob[i] != k {
					return false
				}
				ta, _ := sa.Get(k)
				tb, _ := sb.Get(k)
				if !Equal(ta, tb) {
					return false
				}
			}
			return true
		},
	}
}

// AsSubstitutions unwraps a db.Extension produced by SubstitutionsValue.
func AsSubstitutions(v db.Value) (Substitutions, bool) {
	ext, ok := v.(db.Extension)
	if !ok || ext.Tag != "substitutions" {
		return Substitutions{}, false
	}
	s, ok := ext.Val.(Substitutions)
	return s, ok
}

// ConstraintListValue wraps a []Constraint as a fact payload (reserved fact
// name "constraints", spec §6) — used only for debug/report purposes; the
// solver itself consumes constraints directly via its own queue, not
// through the DB.
func ConstraintListValue(cs []Constraint) db.Value {
	return db.Extension{
		Tag: "constraints",
		Val: cs,
		EqFn: func(a, b any) bool {
			ca, cb := a.([]Constraint), b.([]Constraint)
			return len(ca) == len(cb)
		},
	}
}
