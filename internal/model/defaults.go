package model

// DefaultTemplate is one entry of the starter chore set offered to new families.
type DefaultTemplate struct {
	Name       string
	Icon       string
	Points     int
	Recurrence Recurrence
}

var DefaultTemplates = []DefaultTemplate{
	// kids, daily
	{Name: "Escovar Dentes (Manhã)", Icon: "🦷", Points: 10, Recurrence: RecurrenceDaily},
	{Name: "Escovar Dentes (Noite)", Icon: "🌙", Points: 10, Recurrence: RecurrenceDaily},
	{Name: "Tomar Banho", Icon: "🚿", Points: 15, Recurrence: RecurrenceDaily},
	{Name: "Arrumar a Cama", Icon: "🛏️", Points: 10, Recurrence: RecurrenceDaily},
	{Name: "Tomar Café", Icon: "🥣", Points: 5, Recurrence: RecurrenceDaily},
	{Name: "Fazer Lição de Casa", Icon: "📚", Points: 20, Recurrence: RecurrenceDaily},
	{Name: "Guardar Brinquedos", Icon: "🧸", Points: 10, Recurrence: RecurrenceDaily},
	{Name: "Alimentar o Pet", Icon: "🐕", Points: 10, Recurrence: RecurrenceDaily},
	{Name: "Limpar o Quarto", Icon: "🧹", Points: 15, Recurrence: RecurrenceWeekly},

	// adults
	{Name: "Lavar Roupas", Icon: "👔", Points: 0, Recurrence: RecurrenceWeekly},
	{Name: "Lavar Louça", Icon: "🍽️", Points: 0, Recurrence: RecurrenceDaily},
	{Name: "Aspirar a Casa", Icon: "🧹", Points: 0, Recurrence: RecurrenceWeekly},
	{Name: "Fazer Compras", Icon: "🛒", Points: 0, Recurrence: RecurrenceWeekly},
	{Name: "Preparar Almoço", Icon: "🍳", Points: 0, Recurrence: RecurrenceDaily},
	{Name: "Preparar Jantar", Icon: "🍽️", Points: 0, Recurrence: RecurrenceDaily},
}

// Template builds the TaskTemplate for d; defaults are easy and active.
func (d DefaultTemplate) Template(familyID, createdBy string) *TaskTemplate {
	difficulty := DifficultyEasy
	return &TaskTemplate{
		FamilyID:   familyID,
		Name:       d.Name,
		Icon:       d.Icon,
		Points:     d.Points,
		Difficulty: &difficulty,
		Recurrence: d.Recurrence,
		IsActive:   true,
		CreatedBy:  createdBy,
	}
}
