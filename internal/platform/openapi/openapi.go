package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI 3.0 document for the patient API.
type Generator struct {
	version string
	baseURL string
}

func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	idParam := []map[string]interface{}{
		{"name": "id", "in": "path", "required": true, "schema": map[string]interface{}{"type": "integer", "format": "int64", "minimum": 1}},
	}

	paths := map[string]interface{}{
		"/pacientes": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List patients, or search them by name",
				"operationId": "listPacientes",
				"tags":        []string{"pacientes"},
				"parameters": []map[string]interface{}{
					{"name": "nome", "in": "query", "required": false, "schema": map[string]string{"type": "string"},
						"description": "Case-insensitive substring of the patient name. No match answers 404."},
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Patients", arrayOf("#/components/schemas/Paciente")),
					"404": errorResponse("No patient matches the name"),
				},
			},
			"post": map[string]interface{}{
				"summary":     "Create a patient",
				"operationId": "createPaciente",
				"tags":        []string{"pacientes"},
				"requestBody": requestBody(),
				"responses": map[string]interface{}{
					"200": jsonResponse("Created", ref("#/components/schemas/Paciente")),
					"400": errorResponse("Malformed body"),
				},
			},
		},
		"/pacientes/{id}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Read a patient",
				"operationId": "getPaciente",
				"tags":        []string{"pacientes"},
				"parameters":  idParam,
				"responses": map[string]interface{}{
					"200": jsonResponse("Success", ref("#/components/schemas/Paciente")),
					"404": errorResponse("Not Found"),
				},
			},
			"put": map[string]interface{}{
				"summary":     "Replace a patient",
				"operationId": "updatePaciente",
				"tags":        []string{"pacientes"},
				"parameters":  idParam,
				"requestBody": requestBody(),
				"responses": map[string]interface{}{
					"200": jsonResponse("Updated", ref("#/components/schemas/Paciente")),
					"400": errorResponse("Malformed body or id"),
					"404": errorResponse("Not Found"),
				},
			},
			"delete": map[string]interface{}{
				"summary":     "Delete a patient",
				"operationId": "deletePaciente",
				"tags":        []string{"pacientes"},
				"parameters":  idParam,
				"responses": map[string]interface{}{
					"204": map[string]interface{}{"description": "Deleted"},
					"404": errorResponse("Not Found"),
				},
			},
		},
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Pacientes API",
			"version":     g.version,
			"description": "Patient records with contact, address and medical history",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
}

func ref(schemaRef string) map[string]interface{} {
	return map[string]interface{}{"$ref": schemaRef}
}

func arrayOf(schemaRef string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": ref(schemaRef)}
}

func requestBody() map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref("#/components/schemas/Paciente")},
		},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, ref("#/components/schemas/Error"))
}

func str() map[string]interface{}  { return map[string]interface{}{"type": "string"} }
func date() map[string]interface{} { return map[string]interface{}{"type": "string", "format": "date", "nullable": true} }

func componentSchemas() map[string]interface{} {
	return map[string]interface{}{
		"Paciente": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":              map[string]interface{}{"type": "integer", "format": "int64", "readOnly": true},
				"nome":            str(),
				"dataNascimento":  date(),
				"genero":          str(),
				"contato":         ref("#/components/schemas/Contato"),
				"endereco":        ref("#/components/schemas/Endereco"),
				"historicoMedico": arrayOf("#/components/schemas/HistoricoMedico"),
			},
		},
		"Contato": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"telefone": str(),
				"email":    str(),
			},
		},
		"Endereco": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"rua":    str(),
				"numero": map[string]interface{}{"type": "integer"},
				"cidade": str(),
				"estado": str(),
				"cep":    str(),
			},
		},
		"HistoricoMedico": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"dataConsulta": date(),
				"diagnostico":  str(),
				"tratamento":   str(),
				"observacoes":  str(),
			},
		},
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": str(),
			},
		},
	}
}

// RegisterRoutes serves the document at /openapi.json.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
