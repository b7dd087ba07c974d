package plantilla

import "github.com/hazyhaar/plantilla/render"

// Text shown to the user when the gateway cannot be reached or returns
// something unusable.
const (
	AlertGatewayDown = "Error: No se han podido acceder al API Gateway"
	FallbackMensaje  = "Datos Descargados No válidos"
	FallbackAutor    = "Miguel Angel Carrasco Infante"
	FallbackEmail    = "maci0002@red.ujaen.es"
	FallbackFecha    = "13/08/01"
)

// FallbackRecord is the placeholder payload rendered instead of bad data.
func FallbackRecord() render.Record {
	return render.NewRecord(map[string]any{
		"mensaje": FallbackMensaje,
		"autor":   FallbackAutor,
		"email":   FallbackEmail,
		"fecha":   FallbackFecha,
	})
}
