package fixture

import (
	"fmt"

	"github.com/five82/galley/internal/grid"
)

// Seed returns the sample tables served by a fresh Server.
func Seed() map[string][]grid.Row {
	return map[string][]grid.Row{
		"accounts":   seedAccounts(),
		"employees":  seedEmployees(),
		"attendance": seedAttendance(),
		"meals":      seedMeals(),
		"budget":     seedBudget(),
		"cards":      seedCards(),
		"pnl":        seedPnL(),
	}
}

func seedAccounts() []grid.Row {
	return []grid.Row{
		{"account_id": "A100", "name": "Riverside Tower Cafeteria", "manager": "J. Park", "unit_price": 6500, "phone": "02-555-0100", "status": "active"},
		{"account_id": "A200", "name": "Northgate Logistics Hub", "manager": "M. Lee", "unit_price": 5800, "phone": "031-555-0200", "status": "active"},
		{"account_id": "A300", "name": "Harbor Clinic", "manager": "S. Choi", "unit_price": 7200, "phone": "051-555-0300", "status": "closed"},
	}
}

type employee struct {
	id, account, name, role string
	wage                    int
}

var employees = []employee{
	{"E001", "A100", "Kim Minji", "head cook", 14500},
	{"E002", "A100", "Lee Jisoo", "cook", 12000},
	{"E003", "A100", "Park Hana", "server", 10030},
	{"E004", "A100", "Choi Yuna", "server", 10030},
	{"E005", "A200", "Jung Hoon", "head cook", 14000},
	{"E006", "A200", "Kang Seo", "cook", 11800},
}

func seedEmployees() []grid.Row {
	rows := make([]grid.Row, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, grid.Row{
			"employee_id": e.id,
			"account":     e.account,
			"name":        e.name,
			"role":        e.role,
			"hourly_wage": e.wage,
			"note":        "",
		})
	}
	return rows
}

func seedAttendance() []grid.Row {
	var rows []grid.Row
	for _, month := range []int{4, 5} {
		for i, e := range employees {
			days := 20 + (i+month)%3
			overtime := (i * 3) % 7
			gross := days*8*e.wage + overtime*e.wage*3/2
			rows = append(rows, grid.Row{
				"employee_id":    e.id,
				"year":           2024,
				"month":          month,
				"account":        e.account,
				"days_worked":    days,
				"overtime_hours": overtime,
				"gross_pay":      gross,
				"deductions":     gross / 10,
				"note":           "",
			})
		}
	}
	return rows
}

func seedMeals() []grid.Row {
	var rows []grid.Row
	for _, account := range []string{"A100", "A200"} {
		base := 40
		if account == "A200" {
			base = 25
		}
		for day := 1; day <= 10; day++ {
			rows = append(rows, grid.Row{
				"day":       day,
				"year":      2024,
				"month":     5,
				"account":   account,
				"breakfast": base/2 + day%4,
				"lunch":     base + day%5,
				"dinner":    base/3 + day%3,
				"snack":     0,
				"note":      "",
			})
		}
	}
	return rows
}

func seedBudget() []grid.Row {
	categories := []struct {
		name    string
		planned int
	}{
		{"food", 5_200_000},
		{"labor", 7_800_000},
		{"supplies", 600_000},
	}
	var rows []grid.Row
	for month := 1; month <= 6; month++ {
		for _, c := range categories {
			rows = append(rows, grid.Row{
				"category": c.name,
				"month":    month,
				"year":     2024,
				"account":  "A100",
				"planned":  c.planned,
				"actual":   c.planned - 50_000*(month%3) + 20_000*(month%2),
				"memo":     "",
			})
		}
	}
	return rows
}

func seedCards() []grid.Row {
	merchants := []string{"Fresh Farm Produce", "Metro Wholesale", "City Gas", "Clean Supply Co", "Daily Bakery"}
	var rows []grid.Row
	for i := 0; i < 8; i++ {
		month := 5
		if i >= 6 {
			month = 4
		}
		rows = append(rows, grid.Row{
			"txn_id":     fmt.Sprintf("T%04d", 1001+i),
			"year":       2024,
			"month":      month,
			"card_last4": "4821",
			"merchant":   merchants[i%len(merchants)],
			"amount":     35_000 + 12_500*i,
			"account":    "",
			"category":   "",
			"receipt":    "no",
			"memo":       "",
		})
	}
	return rows
}

func seedPnL() []grid.Row {
	var rows []grid.Row
	for month := 1; month <= 6; month++ {
		revenue := 18_000_000 + 400_000*month
		rows = append(rows, grid.Row{
			"month":      month,
			"year":       2024,
			"account":    "A100",
			"revenue":    revenue,
			"food_cost":  revenue * 38 / 100,
			"labor_cost": revenue * 33 / 100,
			"overhead":   1_100_000,
			"memo":       "",
		})
	}
	return rows
}
