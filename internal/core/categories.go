package core

// CategoryGroup is one section of the fixed category taxonomy.
type CategoryGroup struct {
	ID    string
	Title string
	Items []CategoryItem
}

type CategoryItem struct {
	ID    string
	Label string
}

const (
	GroupIncome  = "income"
	GroupExpense = "expense"
	GroupSavings = "savings"
)

var CategoryGroups = []CategoryGroup{
	{
		ID:    GroupIncome,
		Title: "Ingresos",
		Items: []CategoryItem{
			{"salario", "Salario"},
			{"freelance", "Freelance"},
			{"inversiones", "Inversiones"},
			{"otros_ingresos", "Otros Ingresos"},
		},
	},
	{
		ID:    GroupExpense,
		Title: "Gastos",
		Items: []CategoryItem{
			{"vivienda", "Vivienda"},
			{"alimentacion", "Alimentación"},
			{"transporte", "Transporte"},
			{"suministros", "Suministros"},
			{"telecomunicaciones", "Telecomunicaciones"},
			{"salud", "Salud"},
			{"seguros", "Seguros"},
			{"suscripciones", "Suscripciones"},
			{"ocio", "Ocio y Restaurantes"},
			{"entretenimiento", "Entretenimiento"},
			{"compras", "Compras Personales"},
			{"viajes", "Viajes"},
		},
	},
	{
		ID:    GroupSavings,
		Title: "Ahorros e Inversión",
		Items: []CategoryItem{
			{"ahorro", "Ahorro General"},
			{"fondo_emergencia", "Fondo de Emergencia"},
			{"inversion_largo_plazo", "Inversión a Largo Plazo"},
			{"objetivo_especifico", "Objetivo Específico"},
		},
	},
}

// CategoryGroupOf returns the group a category id belongs to, or "" for ids
// outside the taxonomy.
func CategoryGroupOf(id string) string {
	_, group := lookupCategory(id)
	return group
}

// CategoryLabel returns the display label, falling back to the id itself.
func CategoryLabel(id string) string {
	item, _ := lookupCategory(id)
	return item.Label
}

func lookupCategory(id string) (CategoryItem, string) {
	for _, g := range CategoryGroups {
		for _, it := range g.Items {
			if it.ID == id {
				return it, g.ID
			}
		}
	}
	return CategoryItem{ID: id, Label: id}, ""
}

// BudgetedGroups are the groups shown against spending ceilings.
func BudgetedGroups() []CategoryGroup {
	out := make([]CategoryGroup, 0, 2)
	for _, g := range CategoryGroups {
		if g.ID == GroupExpense || g.ID == GroupSavings {
			out = append(out, g)
		}
	}
	return out
}
