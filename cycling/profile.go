package cycling

const (
	ProfileName        = "Transitopia Cycling"
	ProfileDescription = "A vector map tileset with detailed cycling data."
	ProfileAttribution = `<a href="https://www.transitopia.org/" target="_blank">&copy; Transitopia</a>`
	ProfileVersion     = "0.0.1"
)
