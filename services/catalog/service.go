package catalog

import (
	"context"
	"fmt"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
)

type service struct {
	categoryStore mystore.Store[Category]
	programStore  mystore.Store[Program]
	countryStore  mystore.Store[Country]
	logger        mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(categoryStore mystore.Store[Category], programStore mystore.Store[Program], countryStore mystore.Store[Country], logger mylog.Logger) *service {
	return &service{
		categoryStore: categoryStore,
		programStore:  programStore,
		countryStore:  countryStore,
		logger:        logger,
	}
}

func (s *service) listCategories(c context.Context) ([]Category, error) {
	categories, err := s.categoryStore.Query(c, nil, "Name")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching categories: %s", err))
	}
	return categories, nil
}

func (s *service) listPrograms(c context.Context, categoryUID string) ([]Program, error) {
	programs, err := s.programStore.Query(c, []mystore.Filter{
		{Field: "CategoryUID", Compare: "=", Value: categoryUID},
	}, "Name")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching programs of category %s: %s", categoryUID, err))
	}
	return programs, nil
}

func (s *service) getCategory(c context.Context, categoryUID string) (Category, error) {
	category, found, err := s.categoryStore.Get(c, categoryUID)
	if err != nil {
		return Category{}, myerrors.NewInternalError(fmt.Errorf("error fetching category %s: %s", categoryUID, err))
	}
	if !found {
		return Category{}, myerrors.NewNotFoundError(fmt.Errorf("category with uid %s not found", categoryUID))
	}
	return category, nil
}

func (s *service) getProgram(c context.Context, programUID string) (Program, error) {
	program, found, err := s.programStore.Get(c, programUID)
	if err != nil {
		return Program{}, myerrors.NewInternalError(fmt.Errorf("error fetching program %s: %s", programUID, err))
	}
	if !found {
		return Program{}, myerrors.NewNotFoundError(fmt.Errorf("program with uid %s not found", programUID))
	}
	return program, nil
}

func (s *service) listCountries(c context.Context, programUID string) ([]Country, error) {
	countries, err := s.countryStore.Query(c, []mystore.Filter{
		{Field: "ProgramUID", Compare: "=", Value: programUID},
	}, "Name")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching countries of program %s: %s", programUID, err))
	}
	return countries, nil
}
