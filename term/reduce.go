package term

// ---------------------------------------------------------------------------
// Beta reduction
// ---------------------------------------------------------------------------

// Step reduces the head redex of r, if there is one.
//
// When r is Application(Abstraction(body), arg), the application and
// abstraction cells are freed and the substituted body is returned; r is
// consumed. Otherwise r itself is returned and nothing is allocated or freed.
// Callers detect progress by comparing the result with r.
func (s *Store) Step(r Ref) Ref {
	app := s.mem.ReadOut(r.cell)
	if app.Kind != Application {
		return r
	}
	fn := s.mem.ReadOut(app.Left.cell)
	if fn.Kind != Abstraction {
		return r
	}

	body, arg := fn.Left, app.Right
	s.mem.Deallocate(app.Left.cell)
	s.mem.Deallocate(r.cell)
	return s.Substitute(body, arg, 0)
}

// Substitute consumes body and arg and returns body with every
// Variable(target) replaced by arg. The target grows by one under each
// abstraction. Indices are not shifted, so the result is exact when arg is
// closed.
//
// The first occurrence receives arg itself and later occurrences receive
// clones of it. If nothing matched, arg is destroyed.
func (s *Store) Substitute(body, arg Ref, target uint32) Ref {
	sub := &substitution{store: s, arg: arg}
	out := sub.rewrite(body, target)
	if !sub.used {
		s.Destroy(arg)
	}
	return out
}

type substitution struct {
	store *Store
	arg   Ref
	used  bool
}

// take hands out the argument for one occurrence. The original is placed at
// the first site; arg's cells are never rewritten afterwards, so cloning from
// it for later sites is safe.
func (sub *substitution) take() Ref {
	if !sub.used {
		sub.used = true
		return sub.arg
	}
	return sub.store.Clone(sub.arg)
}

func (sub *substitution) rewrite(r Ref, target uint32) Ref {
	s := sub.store
	n := s.mem.ReadOut(r.cell)
	switch n.Kind {
	case Variable:
		if n.Index != target {
			return r
		}
		s.mem.Deallocate(r.cell)
		return sub.take()

	case Application:
		fn := sub.rewrite(n.Left, target)
		arg := sub.rewrite(n.Right, target)
		s.mem.Deallocate(r.cell)
		return s.Construct(App(fn, arg))

	case Abstraction:
		body := sub.rewrite(n.Left, target+1)
		s.mem.Deallocate(r.cell)
		return s.Construct(Abs(body))
	}
	return r
}
