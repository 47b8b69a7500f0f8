package core

import (
	"strings"
	"time"
	"unicode"
)

// Kind separates money coming in from money going out.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Category is a closed, kind-specific classification code.
type Category string

// Expense categories.
const (
	CategorySeeds          Category = "seeds"
	CategoryFertilizers    Category = "fertilizers"
	CategoryPesticides     Category = "pesticides"
	CategoryEquipment      Category = "equipment"
	CategoryFuel           Category = "fuel"
	CategoryLabor          Category = "labor"
	CategoryIrrigation     Category = "irrigation"
	CategoryTransportation Category = "transportation"
	CategoryStorage        Category = "storage"
	CategoryInsurance      Category = "insurance"
	CategoryMaintenance    Category = "maintenance"
)

// Income categories.
const (
	CategoryCropSales         Category = "crop_sales"
	CategoryLivestock         Category = "livestock"
	CategoryDairy             Category = "dairy"
	CategoryGovernmentSubsidy Category = "government_subsidy"
	CategoryContractFarming   Category = "contract_farming"
	CategoryEquipmentRental   Category = "equipment_rental"
	CategoryConsulting        Category = "consulting"
)

// CategoryOther belongs to both kinds.
const CategoryOther Category = "other"

var (
	expenseCategories = []Category{
		CategorySeeds, CategoryFertilizers, CategoryPesticides, CategoryEquipment,
		CategoryFuel, CategoryLabor, CategoryIrrigation, CategoryTransportation,
		CategoryStorage, CategoryInsurance, CategoryMaintenance, CategoryOther,
	}
	incomeCategories = []Category{
		CategoryCropSales, CategoryLivestock, CategoryDairy, CategoryGovernmentSubsidy,
		CategoryContractFarming, CategoryEquipmentRental, CategoryConsulting, CategoryOther,
	}

	categoryLabels = map[Category]string{
		CategorySeeds:             "Seeds",
		CategoryFertilizers:       "Fertilizers",
		CategoryPesticides:        "Pesticides",
		CategoryEquipment:         "Equipment",
		CategoryFuel:              "Fuel",
		CategoryLabor:             "Labor",
		CategoryIrrigation:        "Irrigation",
		CategoryTransportation:    "Transportation",
		CategoryStorage:           "Storage",
		CategoryInsurance:         "Insurance",
		CategoryMaintenance:       "Maintenance",
		CategoryCropSales:         "Crop Sales",
		CategoryLivestock:         "Livestock",
		CategoryDairy:             "Dairy",
		CategoryGovernmentSubsidy: "Government Subsidy",
		CategoryContractFarming:   "Contract Farming",
		CategoryEquipmentRental:   "Equipment Rental",
		CategoryConsulting:        "Consulting",
		CategoryOther:             "Other",
	}
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return ErrInvalidKind
	}
	return nil
}

// Categories lists the closed category set for the kind in display order.
func (k Kind) Categories() []Category {
	switch k {
	case Income:
		return append([]Category(nil), incomeCategories...)
	case Expense:
		return append([]Category(nil), expenseCategories...)
	}
	return nil
}

// Allows reports whether c belongs to the kind's category set.
func (k Kind) Allows(c Category) bool {
	for _, allowed := range k.Categories() {
		if allowed == c {
			return true
		}
	}
	return false
}

// Label is the human-readable category name, e.g. "Crop Sales".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory resolves a category for the given kind. It accepts the code
// ("crop_sales"), the label ("Crop Sales") or the joined name ("CropSales"),
// ignoring case.
func ParseCategory(kind Kind, s string) (Category, error) {
	key := foldName(s)
	if key == "" {
		return "", ErrInvalidCategory
	}
	for _, c := range kind.Categories() {
		if foldName(string(c)) == key {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// foldName lowercases and drops separators so codes, labels and names compare equal.
func foldName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// TransactionInput carries the caller-supplied fields of a new transaction.
type TransactionInput struct {
	Kind        Kind
	Amount      Money
	Category    Category
	Description string
	Date        Date
}

func (in TransactionInput) Validate() error {
	if err := in.Kind.Validate(); err != nil {
		return err
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Kind.Allows(in.Category) {
		return ErrInvalidCategory
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          string
	Kind        Kind
	Amount      Money
	Category    Category
	Description string
	Date        Date
	// Seq is the store-assigned insertion position, used to order same-day entries.
	Seq       int64
	CreatedAt time.Time
}

// NewTransaction builds a validated transaction from input. Seq is left for the store.
func NewTransaction(id string, in TransactionInput, now time.Time) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          id,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		CreatedAt:   now.UTC(),
	}, nil
}
