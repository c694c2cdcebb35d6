package sheetsim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/types"
)

const dateLayout = "2006-01-02"

var (
	firstNames = []string{
		"Ali", "Bea", "Carlos", "Dana", "Elif", "Finn", "Greta", "Hamid",
		"Ines", "Jonas", "Kira", "Lars", "Mira", "Nils", "Olga", "Paul",
		"Quinn", "Rosa", "Samir", "Tara", "Umut", "Vera", "Wim", "Yara",
	}
	lastNames = []string{
		"Akin", "Berger", "Costa", "Demir", "Eriksen", "Fischer", "Garcia",
		"Hansen", "Ivanova", "Jung", "Keller", "Lang", "Meyer", "Novak",
	}
)

// Agent is one simulated employee
type Agent struct {
	EmployeeID int
	Name       string
	Target     int
	// rate is the agent's mean daily activations
	rate float64
}

// Sheet is one generated tab
type Sheet struct {
	Descriptor types.SheetDescriptor
	Rows       []types.RawRow
}

// Workbook is a generated spreadsheet: the master sheet first, then daily sheets in date order
type Workbook struct {
	Seed   int64
	Agents []Agent
	Sheets []Sheet
	byName map[string]int
}

// Descriptors lists the workbook's tabs
func (wb *Workbook) Descriptors() []types.SheetDescriptor {
	out := make([]types.SheetDescriptor, len(wb.Sheets))
	for i, s := range wb.Sheets {
		out[i] = s.Descriptor
	}
	return out
}

// Rows returns the rows of the named tab
func (wb *Workbook) Rows(name string) ([]types.RawRow, bool) {
	i, ok := wb.byName[name]
	if !ok {
		return nil, false
	}
	return wb.Sheets[i].Rows, true
}

// Generator creates reproducible workbooks
type Generator struct {
	seed int64
	rng  *rand.Rand
}

// NewGenerator creates a new workbook generator
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Generate builds a workbook of agentCount agents over days daily sheets ending at last.
// The same seed and arguments always produce the same workbook.
func (g *Generator) Generate(agentCount, days int, last time.Time) *Workbook {
	g.rng.Seed(g.seed)

	wb := &Workbook{
		Seed:   g.seed,
		Agents: g.generateAgents(agentCount),
		byName: make(map[string]int),
	}

	// per agent, per category running sums for the master sheet
	sums := make([][4]int, agentCount)

	daily := make([]Sheet, 0, days)
	for d := days - 1; d >= 0; d-- {
		label := last.AddDate(0, 0, -d).Format(dateLayout)
		daily = append(daily, g.dailySheet(label, wb.Agents, sums))
	}

	wb.Sheets = append([]Sheet{masterSheet(wb.Agents, sums)}, daily...)
	for i, s := range wb.Sheets {
		wb.byName[s.Descriptor.Name] = i
	}
	return wb
}

func (g *Generator) generateAgents(count int) []Agent {
	agents := make([]Agent, count)
	for i := 0; i < count; i++ {
		agents[i] = Agent{
			EmployeeID: 1001 + i,
			Name:       fmt.Sprintf("%s %s", firstNames[g.rng.Intn(len(firstNames))], lastNames[g.rng.Intn(len(lastNames))]),
			Target:     20 + 5*g.rng.Intn(9),
			rate:       0.5 + g.rng.Float64()*4,
		}
	}
	return agents
}

// dailySheet generates one period tab and adds its counts to sums
func (g *Generator) dailySheet(label string, agents []Agent, sums [][4]int) Sheet {
	rows := []types.RawRow{
		{"Activations " + label},
		{"Emp ID", "Agent Name", "Silver", "Gold", "Platinum", "Standard", "Total"},
	}

	var total [5]int
	for i, a := range agents {
		var counts [4]int
		// some agents have days off
		if g.rng.Float64() >= 0.15 {
			for c := range counts {
				counts[c] = g.rng.Intn(int(a.rate) + 1)
			}
		}

		dayTotal := 0
		for c, n := range counts {
			sums[i][c] += n
			total[c] += n
			dayTotal += n
		}
		total[4] += dayTotal

		rows = append(rows, types.RawRow{
			float64(a.EmployeeID), a.Name,
			float64(counts[0]), float64(counts[1]), float64(counts[2]), float64(counts[3]),
			float64(dayTotal),
		})
	}

	rows = append(rows, types.RawRow{
		types.TotalSentinel, "",
		float64(total[0]), float64(total[1]), float64(total[2]), float64(total[3]),
		float64(total[4]),
	})

	return Sheet{
		Descriptor: types.SheetDescriptor{Name: label, PeriodLabel: label},
		Rows:       rows,
	}
}

func masterSheet(agents []Agent, sums [][4]int) Sheet {
	rows := []types.RawRow{
		{"Activations overview"},
		{"Emp ID", "Agent Name", "Silver", "Gold", "Platinum", "Standard", "Target", "Achieved", "Remaining"},
	}

	var total [7]int
	for i, a := range agents {
		achieved := sums[i][0] + sums[i][1] + sums[i][2] + sums[i][3]
		remaining := a.Target - achieved

		rows = append(rows, types.RawRow{
			float64(a.EmployeeID), a.Name,
			float64(sums[i][0]), float64(sums[i][1]), float64(sums[i][2]), float64(sums[i][3]),
			float64(a.Target), float64(achieved), float64(remaining),
		})

		for c := 0; c < 4; c++ {
			total[c] += sums[i][c]
		}
		total[4] += a.Target
		total[5] += achieved
		total[6] += remaining
	}

	row := types.RawRow{types.TotalSentinel, ""}
	for _, n := range total {
		row = append(row, float64(n))
	}
	rows = append(rows, row)

	return Sheet{
		Descriptor: types.SheetDescriptor{Name: types.MasterSheet, PeriodLabel: types.MasterSheet},
		Rows:       rows,
	}
}
