package services

import (
	"fmt"
	"sort"

	"pll.link/models"
)

// ViewSnapshot bir UserLinkView ve sahibinin ilgili sadakat üyeliği (yoksa nil).
type ViewSnapshot struct {
	View  models.UserLinkView
	Entry *models.LoyaltyEntry
}

// LinkSnapshot bir BaseLink'in çözümleme anındaki hali.
type LinkSnapshot struct {
	Link          models.BaseLink
	Account       models.LoyaltyAccount
	AccountStatus models.LinkStatus // EffectiveLoyaltyStatus sonucu
	Views         []ViewSnapshot
}

// ResolverInput tek bir ödeme kartını paylaşan tüm link'lerin anlık görüntüsüdür.
type ResolverInput struct {
	Card  models.PaymentCardAccount
	Links []LinkSnapshot
}

// LinkOutcome bir BaseLink için hesaplanan yeni active/suppressed değerleri.
type LinkOutcome struct {
	BaseLinkID       uint
	LoyaltyAccountID uint
	SchemeID         uint
	Active           bool
	Suppressed       bool
	WasActive        bool
	WasSuppressed    bool
}

// Changed kalıcı olarak yazılması gereken bir fark olup olmadığını söyler.
func (o LinkOutcome) Changed() bool {
	return o.Active != o.WasActive || o.Suppressed != o.WasSuppressed
}

// ActiveChanged aktivasyon durum makinesine sinyal gerekip gerekmediğini söyler.
func (o LinkOutcome) ActiveChanged() bool {
	return o.Active != o.WasActive
}

// ViewOutcome bir UserLinkView için hesaplanan yeni durum ve slug.
type ViewOutcome struct {
	ViewID               uint
	UserID               uint
	BaseLinkID           uint
	PaymentCardAccountID uint
	LoyaltyAccountID     uint
	FromState            models.LinkState
	FromSlug             string
	ToState              models.LinkState
	ToSlug               string
}

// Changed görünümün yazılması gerekip gerekmediğini söyler.
func (o ViewOutcome) Changed() bool {
	return o.FromState != o.ToState || o.FromSlug != o.ToSlug
}

// StateChanged durum (slug hariç) değiştiyse true.
func (o ViewOutcome) StateChanged() bool {
	return o.FromState != o.ToState
}

// Resolution çözümleyicinin tam çıktısı. Anomalies loglanır, işlemi durdurmaz.
type Resolution struct {
	Links     []LinkOutcome
	Views     []ViewOutcome
	Anomalies []string
}

// ResolveCollisions bir ödeme kartının link'lerini şemaya göre gruplar ve her grupta
// en fazla bir yetkili ilişki bırakır. Sıralama: saklı active önce, bastırılmamış önce,
// sonra küçük BaseLink ID. Kaybedenler INACTIVE/UBIQUITY_COLLISION olur ve active=false yazılır.
// Girdi sırasından bağımsızdır ve kendi çıktısına tekrar uygulandığında aynı sonucu verir.
func ResolveCollisions(in ResolverInput) Resolution {
	links := make([]LinkSnapshot, len(in.Links))
	copy(links, in.Links)
	sort.Slice(links, func(i, j int) bool { return links[i].Link.ID < links[j].Link.ID })

	var res Resolution
	groups := make(map[uint][]int)
	var schemeOrder []uint

	for i, l := range links {
		if !participates(l) {
			continue
		}
		scheme := l.Account.SchemeID
		if _, ok := groups[scheme]; !ok {
			schemeOrder = append(schemeOrder, scheme)
		}
		groups[scheme] = append(groups[scheme], i)
	}

	winners := make(map[int]bool)
	losers := make(map[int]bool)
	sort.Slice(schemeOrder, func(i, j int) bool { return schemeOrder[i] < schemeOrder[j] })
	for _, scheme := range schemeOrder {
		idx := groups[scheme]
		activeCount := 0
		for _, i := range idx {
			if links[i].Link.Active {
				activeCount++
			}
		}
		if activeCount > 1 {
			res.Anomalies = append(res.Anomalies, fmt.Sprintf(
				"kart %d, şema %d için %d aktif BaseLink bulundu", in.Card.ID, scheme, activeCount))
		}
		sort.SliceStable(idx, func(a, b int) bool { return outranks(links[idx[a]].Link, links[idx[b]].Link) })
		winners[idx[0]] = true
		for _, i := range idx[1:] {
			losers[i] = true
		}
	}

	for i, l := range links {
		outcome := LinkOutcome{
			BaseLinkID:       l.Link.ID,
			LoyaltyAccountID: l.Link.LoyaltyAccountID,
			SchemeID:         l.Account.SchemeID,
			WasActive:        l.Link.Active,
			WasSuppressed:    l.Link.Suppressed,
		}
		switch {
		case losers[i]:
			outcome.Active, outcome.Suppressed = false, true
		case winners[i]:
			outcome.Active = ComputeActive(in.Card, l.Account, l.AccountStatus)
		default:
			// Görünümü olmayan ya da hesabı silinmiş link hiçbir ilişkiyi temsil etmez
			outcome.Active = false
		}
		res.Links = append(res.Links, outcome)

		views := make([]ViewSnapshot, len(l.Views))
		copy(views, l.Views)
		sort.Slice(views, func(a, b int) bool { return views[a].View.ID < views[b].View.ID })
		for _, v := range views {
			vo := ViewOutcome{
				ViewID:               v.View.ID,
				UserID:               v.View.UserID,
				BaseLinkID:           l.Link.ID,
				PaymentCardAccountID: l.Link.PaymentCardAccountID,
				LoyaltyAccountID:     l.Link.LoyaltyAccountID,
				FromState:            v.View.State,
				FromSlug:             v.View.Slug,
			}
			if losers[i] {
				vo.ToState, vo.ToSlug = models.LinkStateInactive, models.SlugUbiquityCollision
			} else {
				vo.ToState, vo.ToSlug = DeriveUserLinkStatus(in.Card, l.Account, v.Entry)
			}
			res.Views = append(res.Views, vo)
		}
	}
	return res
}

func participates(l LinkSnapshot) bool {
	return len(l.Views) > 0 && !l.Account.IsDeleted
}

func outranks(a, b models.BaseLink) bool {
	if a.Active != b.Active {
		return a.Active
	}
	if a.Suppressed != b.Suppressed {
		return !a.Suppressed
	}
	return a.ID < b.ID
}
