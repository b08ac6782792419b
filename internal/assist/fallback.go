package assist

import "github.com/impulso-digital/plataforma/internal/hierarchy"

// roleFallbacks are the canned responses served when the content
// service is unreachable. Phrased per role so degraded output still
// sounds like the actor.
var roleFallbacks = map[hierarchy.Role]string{
	hierarchy.RoleDepartmentalDirector: "Compañeras y compañeros: les comparto un mensaje importante para todo el departamento. Pronto ampliaremos los detalles por los canales oficiales.",
	hierarchy.RoleMayor:                "Vecinas y vecinos de nuestro municipio: la alcaldía les mantendrá informados sobre este tema por los medios habituales.",
	hierarchy.RoleAssemblyDeputy:       "Estimados compañeros: como diputado les haré llegar información ampliada sobre este asunto en los próximos días.",
	hierarchy.RoleCouncilMember:        "Compañeros del consejo: quedo atento a sus comentarios sobre este punto para tratarlo en la próxima sesión.",
	hierarchy.RoleLocalBoard:           "Junta local: compartimos este aviso con la comunidad y coordinaremos los siguientes pasos en la reunión semanal.",
	hierarchy.RoleMunicipalCoordinator: "Equipo de coordinación: les comparto este aviso; confirmen recepción y repliquen en sus zonas.",
	hierarchy.RoleCommunityLeader:      "Vecinas y vecinos: les comparto este aviso comunitario. Cualquier duda, me pueden contactar directamente.",
	hierarchy.RoleDigitalInfluencer:    "¡Hola a todos! Pronto compartiremos más novedades por nuestras redes. ¡Pendientes!",
	hierarchy.RoleCollaborator:         "Hola, comparto este aviso del equipo. Quedo pendiente de sus comentarios.",
	hierarchy.RoleCitizen:              "Gracias por participar. Pronto habrá más información disponible.",
}

const genericFallback = "Servicio de redacción no disponible por el momento. Este es un mensaje base: puede editarlo antes de enviar."

// Fallback returns the canned response for a role. Unknown roles get
// the generic text; the gateway must always have something to serve.
func Fallback(role hierarchy.Role, messageType string) string {
	if text, ok := roleFallbacks[role]; ok {
		return text
	}
	return genericFallback
}
