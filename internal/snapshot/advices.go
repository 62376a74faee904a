package snapshot

import (
	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/order"
)

// advices ranks the aspects and assigns every advice its layer. Advices of
// aspects caught in a precedence cycle are dropped; the cycle is reported
// by order.Rank.
func (l *loader) advices(aspects []aspectDoc, r diag.Reporter) ([]advice.Advice, order.Ranking, error) {
	metas := make([]order.AspectMeta, 0, len(aspects))
	seen := make(map[string]bool, len(aspects))
	for _, ad := range aspects {
		if ad.Name == "" {
			return nil, order.Ranking{}, l.errorf(ad.pos, "aspect without name")
		}
		if seen[ad.Name] {
			return nil, order.Ranking{}, l.errorf(ad.pos, "aspect %q declared twice", ad.Name)
		}
		seen[ad.Name] = true
		meta := order.AspectMeta{Name: ad.Name, Span: l.span(ad.pos)}
		for _, dep := range ad.After {
			meta.After = append(meta.After, order.Dependency{Name: dep.Name, Span: l.span(dep.pos)})
		}
		metas = append(metas, meta)
	}
	ranking := order.Rank(metas, r)

	var list []advice.Advice
	for _, ad := range aspects {
		if ranking.Dropped[ad.Name] {
			continue
		}
		rank := ranking.Rank[ad.Name]
		for inst, in := range ad.Instances {
			for k, doc := range in.Advices {
				h := advice.Header{
					Aspect: ad.Name,
					Layer:  order.Layer{Aspect: rank, Instance: inst, Advice: k},
					Target: decl.Key(doc.Target),
					Span:   l.span(doc.pos),
				}
				a, err := l.advice(h, doc)
				if err != nil {
					return nil, order.Ranking{}, err
				}
				list = append(list, a)
			}
		}
	}
	return list, ranking, nil
}

func (l *loader) advice(h advice.Header, doc adviceDoc) (advice.Advice, error) {
	kind, ok := advice.ParseKind(doc.Kind)
	if !ok {
		return advice.Advice{}, l.errorf(doc.pos, "unknown advice kind %q", doc.Kind)
	}
	switch h.Target.Prefix() {
	case 'N', 'T', 'M', 'P', 'F', 'E':
	default:
		return advice.Advice{}, l.errorf(doc.pos, "advice target %q is not a declaration key", doc.Target)
	}
	policy, ok := advice.ParsePolicy(doc.Policy)
	if !ok {
		return advice.Advice{}, l.errorf(doc.pos, "unknown policy %q", doc.Policy)
	}

	var a advice.Advice
	switch kind {
	case advice.KindIntroduce:
		if doc.Member == nil {
			return advice.Advice{}, l.errorf(doc.pos, "introduce advice without member")
		}
		m, err := l.memberDecl(*doc.Member, true)
		if err != nil {
			return advice.Advice{}, err
		}
		a = advice.NewIntroduce(h, advice.Introduce{Member: m, Policy: policy})
	case advice.KindOverride:
		tpl := advice.Templates{Body: doc.Body, Get: doc.Get, Set: doc.Set, Add: doc.Add, Remove: doc.Remove}
		if tpl.Empty() {
			return advice.Advice{}, l.errorf(doc.pos, "override advice without templates")
		}
		a = advice.NewOverride(h, advice.Override{Templates: tpl})
	case advice.KindAddParameter:
		if doc.Param == nil {
			return advice.Advice{}, l.errorf(doc.pos, "add-parameter advice without param")
		}
		p, err := l.param(doc.pos, *doc.Param)
		if err != nil {
			return advice.Advice{}, err
		}
		pull, ok := advice.ParsePull(doc.Pull)
		if !ok {
			return advice.Advice{}, l.errorf(doc.pos, "unknown pull %q", doc.Pull)
		}
		a = advice.NewAddParameter(h, advice.AddParameter{Param: p, Pull: pull})
	case advice.KindAddAnnotation:
		if doc.Attribute == nil || doc.Attribute.Name == "" {
			return advice.Advice{}, l.errorf(doc.pos, "add-annotation advice without attribute")
		}
		a = advice.NewAddAnnotation(h, advice.AddAnnotation{
			Attribute: decl.Attribute{Name: doc.Attribute.Name, Args: doc.Attribute.Args},
			Policy:    policy,
		})
	case advice.KindRemoveAnnotation:
		if doc.Name == "" {
			return advice.Advice{}, l.errorf(doc.pos, "remove-annotation advice without name")
		}
		a = advice.NewRemoveAnnotation(h, advice.RemoveAnnotation{Name: doc.Name})
	default:
		panic("snapshot: unhandled advice kind " + kind.String())
	}
	if err := a.Validate(); err != nil {
		return advice.Advice{}, l.errorf(doc.pos, "%v", err)
	}
	return a, nil
}
