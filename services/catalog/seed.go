package catalog

import "context"

// Seed installs the portal's donation programs. In production the catalog
// is managed out-of-band; these entries keep a fresh deployment usable.
func (s *service) Seed(c context.Context) error {
	categories := []Category{
		{UID: "cat_emergency", Name: "Emergency Appeals", Image: "/images/emergency.jpg"},
		{UID: "cat_sponsorship", Name: "Animal Sponsorship", Image: "/images/sponsorship.jpg"},
		{UID: "cat_water", Name: "Water Projects", Image: "/images/water.jpg"},
	}

	programs := []Program{
		{
			UID:                 "prog_winter_appeal",
			CategoryUID:         "cat_emergency",
			Name:                "Winter Appeal",
			Image:               "/images/winter.jpg",
			HasCountries:        true,
			ParticipantRequired: "N",
			AnimalShare:         1,
			RecommendedAmounts:  []int64{1000, 2500, 5000},
			AnyAmount:           true,
		},
		{
			UID:                 "prog_goat_share",
			CategoryUID:         "cat_sponsorship",
			Name:                "Goat Share",
			Image:               "/images/goat.jpg",
			HasCountries:        true,
			ParticipantRequired: "Y",
			AnimalShare:         1,
			RecommendedAmounts:  []int64{3500},
			AnyAmount:           false,
		},
		{
			UID:                 "prog_cow_share",
			CategoryUID:         "cat_sponsorship",
			Name:                "Cow Share",
			Image:               "/images/cow.jpg",
			HasCountries:        true,
			ParticipantRequired: "Y",
			AnimalShare:         7,
			RecommendedAmounts:  []int64{10500},
			AnyAmount:           false,
		},
		{
			UID:                 "prog_water_well",
			CategoryUID:         "cat_water",
			Name:                "Water Well",
			Image:               "/images/well.jpg",
			HasCountries:        false,
			ParticipantRequired: "N",
			AnimalShare:         1,
			RecommendedAmounts:  []int64{15000, 30000},
			AnyAmount:           true,
		},
	}

	countries := []Country{
		{UID: "country_pk", ProgramUID: "prog_winter_appeal", Name: "Pakistan"},
		{UID: "country_sy", ProgramUID: "prog_winter_appeal", Name: "Syria"},
		{UID: "country_goat_pk", ProgramUID: "prog_goat_share", Name: "Pakistan"},
		{UID: "country_goat_bd", ProgramUID: "prog_goat_share", Name: "Bangladesh"},
		{UID: "country_cow_pk", ProgramUID: "prog_cow_share", Name: "Pakistan"},
	}

	for _, category := range categories {
		if err := s.categoryStore.Put(c, category.UID, category); err != nil {
			return err
		}
	}
	for _, program := range programs {
		if err := s.programStore.Put(c, program.UID, program); err != nil {
			return err
		}
	}
	for _, country := range countries {
		if err := s.countryStore.Put(c, country.UID, country); err != nil {
			return err
		}
	}

	return nil
}
