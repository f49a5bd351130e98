package selection

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/catalog"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

// amountPattern is what a custom amount entered next to the predefined
// rates must match: digits with at most one decimal point
var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// maxPoundDigits keeps a custom amount far away from int64 overflow when
// converted to pence
const maxPoundDigits = 7

type Catalog interface {
	GetCategory(c context.Context, categoryUID string) (catalog.Category, error)
	GetProgram(c context.Context, programUID string) (catalog.Program, error)
	ListCountries(c context.Context, programUID string) ([]catalog.Country, error)
}

type CartCreator interface {
	Create(c context.Context, owner donationapi.Owner, line cart.CartLine) ([]cart.CartLine, error)
}

type service struct {
	stateStore mystore.Store[State]
	catalog    Catalog
	cart       CartCreator
	nower      mytime.Nower
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(stateStore mystore.Store[State], catalogService Catalog, cartService CartCreator, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		stateStore: stateStore,
		catalog:    catalogService,
		cart:       cartService,
		nower:      nower,
		logger:     logger,
	}
}

func (s *service) get(c context.Context, owner donationapi.Owner) (State, error) {
	err := owner.Validate()
	if err != nil {
		return State{}, err
	}

	state, found, err := s.stateStore.Get(c, owner.UID())
	if err != nil {
		return State{}, myerrors.NewInternalError(fmt.Errorf("error fetching selection of %s: %s", owner.UID(), err))
	}
	if !found {
		return s.freshState(owner), nil
	}
	return state, nil
}

func (s *service) freshState(owner donationapi.Owner) State {
	return State{
		OwnerUID:     owner.UID(),
		DonorID:      owner.DonorID,
		SessionID:    owner.SessionID,
		Stage:        StageCategory,
		LastModified: s.nower.Now(),
	}
}

// selectValue advances the stage pointer by one. Going back is not
// supported: a wrong pick is corrected by confirming and editing the cart,
// or by starting over.
func (s *service) selectValue(c context.Context, owner donationapi.Owner, stage string, value string) (State, error) {
	state, err := s.get(c, owner)
	if err != nil {
		return State{}, err
	}

	if stage != state.Stage {
		return State{}, myerrors.NewInvalidInputErrorf("selection is at stage %s, not %s", state.Stage, stage)
	}

	switch stage {
	case StageCategory:
		_, err := s.catalog.GetCategory(c, value)
		if err != nil {
			return State{}, err
		}
		state.CategoryUID = value
		state.Stage = StageProgram

	case StageProgram:
		program, err := s.catalog.GetProgram(c, value)
		if err != nil {
			return State{}, err
		}
		if program.CategoryUID != state.CategoryUID {
			return State{}, myerrors.NewInvalidInputErrorf("program %s does not belong to category %s", value, state.CategoryUID)
		}
		state.ProgramUID = value
		if program.HasCountries {
			state.Stage = StageCountry
		} else {
			// no country dimension for this program, skip ahead
			state.Stage = StageAmount
		}

	case StageCountry:
		countries, err := s.catalog.ListCountries(c, state.ProgramUID)
		if err != nil {
			return State{}, err
		}
		if !containsCountry(countries, value) {
			return State{}, myerrors.NewInvalidInputErrorf("country %s not available for program %s", value, state.ProgramUID)
		}
		state.CountryUID = value
		state.Stage = StageAmount

	case StageAmount:
		return State{}, myerrors.NewInvalidInputErrorf("amount is confirmed, not selected")

	default:
		return State{}, myerrors.NewInvalidInputErrorf("unknown stage %s", stage)
	}

	state.LastModified = s.nower.Now()

	err = s.stateStore.Put(c, state.OwnerUID, state)
	if err != nil {
		return State{}, myerrors.NewInternalError(fmt.Errorf("error storing selection of %s: %s", state.OwnerUID, err))
	}

	s.logger.Log(c, state.OwnerUID, mylog.SeverityInfo, "Selection of %s advanced to stage %s", state.OwnerUID, state.Stage)

	return state, nil
}

// confirmAmount turns the completed selection into a cart line and resets
// the flow so the owner can pick another program.
func (s *service) confirmAmount(c context.Context, owner donationapi.Owner, amount string) ([]cart.CartLine, error) {
	state, err := s.get(c, owner)
	if err != nil {
		return nil, err
	}

	if state.Stage != StageAmount {
		return nil, myerrors.NewInvalidInputErrorf("selection is at stage %s, amount not yet reached", state.Stage)
	}

	program, err := s.catalog.GetProgram(c, state.ProgramUID)
	if err != nil {
		return nil, err
	}

	pence, err := parsePoundsToPence(amount)
	if err != nil {
		return nil, err
	}

	if !isAllowedAmount(program, pence) {
		return nil, myerrors.NewInvalidInputErrorf("amount %s is not offered for program %s", amount, program.UID)
	}

	lines, err := s.cart.Create(c, owner, cart.CartLine{
		CategoryUID:         state.CategoryUID,
		ProgramUID:          program.UID,
		ProgramName:         program.Name,
		ProgramImage:        program.Image,
		CountryUID:          state.CountryUID,
		DonationAmount:      pence,
		PoundAmount:         formatPenceAsPounds(pence),
		Currency:            "GBP",
		Quantity:            1,
		ParticipantRequired: program.ParticipantRequired,
		AnimalShare:         program.AnimalShare,
	})
	if err != nil {
		return nil, err
	}

	fresh := s.freshState(owner)
	err = s.stateStore.Put(c, fresh.OwnerUID, fresh)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error resetting selection of %s: %s", fresh.OwnerUID, err))
	}

	return lines, nil
}

func containsCountry(countries []catalog.Country, uid string) bool {
	for _, country := range countries {
		if country.UID == uid {
			return true
		}
	}
	return false
}

func isAllowedAmount(program catalog.Program, pence int64) bool {
	for _, rate := range program.RecommendedAmounts {
		if rate == pence {
			return true
		}
	}
	return program.AnyAmount && pence > 0
}

func parsePoundsToPence(amount string) (int64, error) {
	if !amountPattern.MatchString(amount) {
		return 0, myerrors.NewInvalidInputErrorf("amount %q is not a valid amount", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return 0, myerrors.NewInvalidInputErrorf("amount is empty")
	}
	if len(frac) > 2 {
		return 0, myerrors.NewInvalidInputErrorf("amount %q has more than two decimal places", amount)
	}
	if len(whole) > maxPoundDigits {
		return 0, myerrors.NewInvalidInputErrorf("amount %q is too large", amount)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var pence int64
	for _, digit := range whole + frac {
		pence = pence*10 + int64(digit-'0')
	}
	return pence, nil
}

func formatPenceAsPounds(pence int64) string {
	return fmt.Sprintf("%d.%02d", pence/100, pence%100)
}
