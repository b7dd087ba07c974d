package render

// Template names registered by DefaultRegistry.
const (
	NamePersonas     = "personas"
	NamePersonasFull = "personas-completo"
	NamePersona      = "persona"
	NameAcercaDe     = "acercade"
	NameHome         = "home"
)

// Persona columns. The narrow projection keeps the first two.
var (
	FieldNombre          = F("nombre", "Nombre")
	FieldApellidos       = F("apellidos", "Apellidos")
	FieldFechaNacimiento = F("fecha_nacimiento", "F. Nacimiento")
	FieldNacionalidad    = F("nacionalidad", "Nacionalidad")
	FieldClub            = F("club", "Club")
	FieldMano            = F("mano", "Mano")
	FieldPeso            = F("peso", "Peso (kg)")
	FieldAltura          = Field{Name: "altura", Token: Token("altura"), Title: "Altura (m)", Format: Fixed(2)}
	FieldRanking         = F("ranking", "Ranking")
)

// PersonaFields is the full persona projection in column order.
func PersonaFields() []Field {
	return []Field{
		FieldNombre, FieldApellidos, FieldFechaNacimiento, FieldNacionalidad,
		FieldClub, FieldMano, FieldPeso, FieldAltura, FieldRanking,
	}
}

var (
	// PersonasNarrow lists nombre and apellidos only.
	PersonasNarrow = Table(NamePersonas, "listado-personas", []Field{FieldNombre, FieldApellidos})

	// PersonasFull lists every persona field.
	PersonasFull = Table(NamePersonasFull, "listado-personas", PersonaFields())

	// PersonaCard shows one persona with every field.
	PersonaCard = Table(NamePersona, "ficha-persona", PersonaFields())

	// AcercaDe renders the about payload (mensaje, autor, email, fecha).
	AcercaDe = Template{
		Name:   NameAcercaDe,
		Header: "<div>\n",
		Row: `    <p>### MENSAJE ###</p>
    <ul>
        <li><b>Mensaje/a</b>: ### MENSAJE ###</li>
        <li><b>Autor/a</b>: ### AUTOR ###</li>
        <li><b>E-mail</b>: ### EMAIL ###</li>
        <li><b>Fecha</b>: ### FECHA ###</li>
    </ul>
`,
		Footer: "</div>\n",
		Fields: []Field{
			F("mensaje", "Mensaje"),
			F("autor", "Autor/a"),
			F("email", "E-mail"),
			F("fecha", "Fecha"),
		},
	}

	// Home renders the home payload: just the message.
	Home = Template{
		Name:   NameHome,
		Row:    "### MENSAJE ###",
		Fields: []Field{F("mensaje", "Mensaje")},
	}
)
