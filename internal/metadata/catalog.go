package metadata

// Catalog returns the HR entities served by the generic router.
func Catalog() []*Entity {
	return []*Entity{
		reference("prefix-name", "prefix_name", "prefix_id"),
		reference("gender", "gender", "gender_id"),
		reference("nationality", "nationality", "nationality_id"),
		reference("country", "country", "country_id"),
		reference("grad-level", "grad_level", "grad_level_id"),
		reference("time-contract", "time_contract", "time_contract_id"),
		reference("staff-type", "staff_type", "stafftype_id"),
		reference("substaff-type", "substaff_type", "substafftype_id"),
		reference("budget", "budget", "budget_id"),
		reference("admin-position", "admin_position", "admin_position_id"),
		reference("academic-standing", "academic_standing", "academicstanding_id"),
		reference("scholar-order-type", "scholar_order_type", "scholar_order_type_id"),
		reference("support-level", "support_level", "positionlevel_id"),
		reference("movement-type", "movement_type", "movement_type_id"),
		{
			Name:  "university",
			Table: "university",
			Key:   "univ_id", AutoKey: true,
			Columns: []Column{
				{Name: "code", Kind: "string", Size: 50, Nullable: true},
				{Name: "name", Kind: "string", Size: 255},
			},
		},
		{
			// Keyed by the national sub-district code, so ids are supplied by the client.
			Name:  "address-codebook",
			Table: "address_codebook",
			Key:   "sub_district_id",
			Columns: []Column{
				{Name: "sub_district_th", Kind: "string", Size: 255},
				{Name: "sub_district_en", Kind: "string", Size: 255, Nullable: true},
				{Name: "district_th", Kind: "string", Size: 255},
				{Name: "district_en", Kind: "string", Size: 255, Nullable: true},
				{Name: "province_th", Kind: "string", Size: 255},
				{Name: "province_en", Kind: "string", Size: 255, Nullable: true},
				{Name: "zipcode", Kind: "string", Size: 10, Nullable: true},
			},
		},
		department(),
		person(),
		{
			Name:  "person-department",
			Table: "person_department",
			Key:   "person_department_id", AutoKey: true,
			Columns: []Column{
				{Name: "person_id", Kind: "int"},
				{Name: "department_id", Kind: "int"},
				{Name: "relation_level", Kind: "int"},
				{Name: "is_primary", Kind: "boolean"},
			},
		},
		{
			Name:  "person-education",
			Table: "person_education",
			Key:   "education_id", AutoKey: true,
			Columns: []Column{
				{Name: "person_id", Kind: "int"},
				{Name: "grad_level_id", Kind: "int", Nullable: true},
				{Name: "institute", Kind: "string", Size: 255},
				{Name: "major", Kind: "string", Size: 255, Nullable: true},
				{Name: "start_year", Kind: "int", Nullable: true},
				{Name: "end_year", Kind: "int", Nullable: true},
				{Name: "gpa", Kind: "decimal", Nullable: true},
			},
		},
	}
}

// CatalogOptions returns the option groups served to the person forms.
func CatalogOptions() map[string][]OptionSource {
	return map[string][]OptionSource{
		"person": {
			{Key: "prefix_names", Entity: "prefix-name"},
			{Key: "genders", Entity: "gender"},
			{Key: "departments", Entity: "department"},
			{Key: "staff_types", Entity: "staff-type"},
		},
		"employment": {
			{Key: "budgets", Entity: "budget"},
			{Key: "time_contracts", Entity: "time-contract"},
			{Key: "admin_positions", Entity: "admin-position"},
			{Key: "academic_standings", Entity: "academic-standing"},
			{Key: "support_levels", Entity: "support-level"},
			{Key: "substaff_types", Entity: "substaff-type"},
			{Key: "nationalities", Entity: "nationality"},
			{Key: "universities", Entity: "university"},
		},
	}
}

func reference(name, table, key string) *Entity {
	return &Entity{
		Name:    name,
		Table:   table,
		Key:     key,
		AutoKey: true,
		Columns: []Column{
			{Name: "code", Kind: "string", Size: 50, Nullable: true},
			{Name: "name_th", Kind: "string", Size: 255},
			{Name: "name_en", Kind: "string", Size: 255, Nullable: true},
		},
	}
}

func department() *Entity {
	e := reference("department", "department", "department_id")
	e.Columns = append(e.Columns, Column{Name: "parent_id", Kind: "int", Nullable: true})
	e.NullOnDelete = []Reference{{Table: "department", Column: "parent_id"}}
	e.Rules = []*Rule{{
		Name:       "parent_not_self",
		Expression: `action == "update" && record.parent_id != nil && record.parent_id == id`,
		Field:      "parent_id",
		Message:    "a department cannot be its own parent",
	}}
	return e
}

func person() *Entity {
	general := []string{
		"prefix_id", "first_name_th", "last_name_th", "first_name_en", "last_name_en",
		"gender_id", "citizen_id", "birthday", "email", "telephone", "picture_url", "stafftype_id",
	}
	address := []string{"home_no", "moo", "street", "sub_district_id", "zipcode"}
	employment := []string{
		"univ_id", "nationality_id", "stafftype_id", "substafftype_id", "time_contract_id",
		"contract_end_date", "budget_id", "admin_position_id", "academicstanding_id",
		"positionlevel_id", "position_work", "rate_number", "status_text", "date_inwork",
		"date_start_this_u", "income_amount", "cost_of_living",
	}

	return &Entity{
		Name:    "person",
		Table:   "person",
		Key:     "person_id",
		AutoKey: true,
		Columns: []Column{
			{Name: "prefix_id", Kind: "int", Nullable: true},
			{Name: "first_name_th", Kind: "string", Size: 255},
			{Name: "last_name_th", Kind: "string", Size: 255},
			{Name: "first_name_en", Kind: "string", Size: 255, Nullable: true},
			{Name: "last_name_en", Kind: "string", Size: 255, Nullable: true},
			{Name: "gender_id", Kind: "int", Nullable: true},
			{Name: "citizen_id", Kind: "string", Size: 13, Nullable: true, Unique: true},
			{Name: "birthday", Kind: "date", Nullable: true},
			{Name: "email", Kind: "string", Size: 255, Nullable: true},
			{Name: "telephone", Kind: "string", Size: 50, Nullable: true},
			{Name: "picture_url", Kind: "string", Size: 512, Nullable: true},
			{Name: "stafftype_id", Kind: "int", Nullable: true},
			{Name: "home_no", Kind: "string", Size: 50, Nullable: true},
			{Name: "moo", Kind: "string", Size: 50, Nullable: true},
			{Name: "street", Kind: "string", Size: 255, Nullable: true},
			{Name: "sub_district_id", Kind: "int", Nullable: true},
			{Name: "zipcode", Kind: "string", Size: 10, Nullable: true},
			{Name: "univ_id", Kind: "int", Nullable: true},
			{Name: "nationality_id", Kind: "int", Nullable: true},
			{Name: "substafftype_id", Kind: "int", Nullable: true},
			{Name: "time_contract_id", Kind: "int", Nullable: true},
			{Name: "contract_end_date", Kind: "date", Nullable: true},
			{Name: "budget_id", Kind: "int", Nullable: true},
			{Name: "admin_position_id", Kind: "int", Nullable: true},
			{Name: "academicstanding_id", Kind: "int", Nullable: true},
			{Name: "positionlevel_id", Kind: "int", Nullable: true},
			{Name: "position_work", Kind: "string", Size: 255, Nullable: true},
			{Name: "rate_number", Kind: "string", Size: 50, Nullable: true},
			{Name: "status_text", Kind: "string", Size: 100, Nullable: true},
			{Name: "date_inwork", Kind: "date", Nullable: true},
			{Name: "date_start_this_u", Kind: "date", Nullable: true},
			{Name: "income_amount", Kind: "decimal", Nullable: true},
			{Name: "cost_of_living", Kind: "decimal", Nullable: true},
			{Name: "updated_at", Kind: "timestamp", Nullable: true},
		},
		Sections: map[string]*Section{
			"general": {
				Name:   "general",
				Fields: append(general, "department_id"),
				Touch:  "updated_at",
				Link: &SectionLink{
					Field:        "department_id",
					Table:        "person_department",
					OwnerColumn:  "person_id",
					TargetColumn: "department_id",
					Scope:        map[string]any{"relation_level": 1, "is_primary": true},
				},
			},
			"address":    {Name: "address", Fields: address, Touch: "updated_at"},
			"employment": {Name: "employment", Fields: employment, Touch: "updated_at"},
		},
		ListJoin: &ListJoin{
			Section: "general",
			Order:   []string{"-is_primary", "relation_level"},
			Table:   "department",
			Key:     "department_id",
			Label:   "name_th",
			As:      "department_name",
		},
	}
}
