package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cosanostra-game/server/internal/domain/family"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/events"
)

// FamilyView is the public state of a family.
type FamilyView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DonID       string          `json:"don_id"`
	Treasury    int64           `json:"treasury"`
	NPC         bool            `json:"npc"`
	Members     []family.Member `json:"members"`
	Territories []string        `json:"territories"`
	Bonuses     family.Bonuses  `json:"bonuses"`
}

// DonChangedPayload describes a change of leadership.
type DonChangedPayload struct {
	FamilyID string `json:"family_id"`
	Previous string `json:"previous"`
	DonID    string `json:"don_id"`
}

// DonationResult is the outcome of a donation.
type DonationResult struct {
	FamilyID string `json:"family_id"`
	Amount   int    `json:"amount"`
	Treasury int64  `json:"treasury"`
	DonID    string `json:"don_id"`
	Cash     int    `json:"cash"`
}

// FamilySystem manages guild membership, donations and Don selection.
type FamilySystem struct {
	system
}

func (fs *FamilySystem) view(f *family.Family) FamilyView {
	v := FamilyView{
		ID:       f.ID,
		Name:     f.Name,
		DonID:    f.DonID,
		Treasury: f.Treasury,
		NPC:      f.NPC,
		Members:  append([]family.Member(nil), f.Members...),
	}
	for _, t := range fs.sortedTerritories() {
		if t.ControllerID == f.ID {
			v.Territories = append(v.Territories, t.ID)
		}
	}
	v.Bonuses = family.BonusesFor(f.ID, fs.sortedTerritories())
	return v
}

// Views lists every family sorted by name.
func (fs *FamilySystem) Views() []FamilyView {
	out := make([]FamilyView, 0, len(fs.w.families))
	for _, f := range fs.w.families {
		out = append(out, fs.view(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// recomputeDon re-elects the Don and announces a change.
func (fs *FamilySystem) recomputeDon(f *family.Family, now time.Time) {
	prev := f.DonID
	if f.RecomputeDon() {
		fs.emit(now, events.EventTypeDonChanged, f.DonID, f.ID, DonChangedPayload{FamilyID: f.ID, Previous: prev, DonID: f.DonID})
		fs.logger.Event("DON_CHANGED", f.DonID, f.Name)
	}
}

// Create founds a new family led by p.
func (fs *FamilySystem) Create(p *player.Player, name string, now time.Time) (FamilyView, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 40 {
		return FamilyView{}, ErrInvalidName
	}
	if p.FamilyID != "" {
		return FamilyView{}, ErrAlreadyInFamily
	}
	lim := fs.w.cat.Limits
	if p.Rank < lim.FamilyMinRank {
		return FamilyView{}, ErrRankTooLow
	}
	for _, f := range fs.w.families {
		if strings.EqualFold(f.Name, name) {
			return FamilyView{}, ErrFamilyNameTaken
		}
	}
	if !p.Spend(lim.FamilyCost) {
		return FamilyView{}, ErrNotEnoughCash
	}

	f := family.New(uuid.NewString(), name, now)
	f.AddMember(p.ID, p.Name, now)
	fs.w.families[f.ID] = f
	p.FamilyID = f.ID

	fs.emit(now, events.EventTypeFamilyCreated, p.ID, f.ID, map[string]string{"name": f.Name})
	fs.logger.Event("FAMILY_CREATED", p.ID, f.Name)
	fs.recomputeDon(f, now)
	return fs.view(f), nil
}

// Join adds p to an existing player family.
func (fs *FamilySystem) Join(p *player.Player, familyID string, now time.Time) (FamilyView, error) {
	f, ok := fs.w.families[familyID]
	if !ok {
		return FamilyView{}, ErrFamilyNotFound
	}
	if f.NPC {
		return FamilyView{}, ErrFamilyClosed
	}
	if p.FamilyID != "" {
		return FamilyView{}, ErrAlreadyInFamily
	}
	f.AddMember(p.ID, p.Name, now)
	p.FamilyID = f.ID
	fs.emit(now, events.EventTypeFamilyJoined, p.ID, f.ID, nil)
	fs.recomputeDon(f, now)
	return fs.view(f), nil
}

// Leave removes p from their family. An empty family disbands and its
// territory becomes unclaimed.
func (fs *FamilySystem) Leave(p *player.Player, now time.Time) error {
	f, ok := fs.w.families[p.FamilyID]
	if !ok {
		return ErrNotInFamily
	}
	f.RemoveMember(p.ID)
	p.FamilyID = ""
	fs.emit(now, events.EventTypeFamilyLeft, p.ID, f.ID, nil)

	if len(f.Members) == 0 {
		delete(fs.w.families, f.ID)
		for _, t := range fs.w.territories {
			if t.ControllerID == f.ID {
				t.ControllerID = ""
				t.LastChange = now
			}
		}
		fs.emit(now, events.EventTypeFamilyDisbanded, p.ID, f.ID, map[string]string{"name": f.Name})
		fs.logger.Event("FAMILY_DISBANDED", p.ID, f.Name)
		return nil
	}
	fs.recomputeDon(f, now)
	return nil
}

// Donate moves cash from p into the family treasury.
func (fs *FamilySystem) Donate(p *player.Player, amount int, now time.Time) (DonationResult, error) {
	f, ok := fs.w.families[p.FamilyID]
	if !ok {
		return DonationResult{}, ErrNotInFamily
	}
	if amount <= 0 {
		return DonationResult{}, ErrInvalidAmount
	}
	if !p.Spend(amount) {
		return DonationResult{}, ErrNotEnoughCash
	}
	f.Donate(p.ID, int64(amount))
	p.Record.Donated += int64(amount)
	fs.recomputeDon(f, now)

	res := DonationResult{FamilyID: f.ID, Amount: amount, Treasury: f.Treasury, DonID: f.DonID, Cash: p.Cash}
	fs.emit(now, events.EventTypeFamilyDonation, p.ID, f.ID, res)
	return res, nil
}
