package server

import "html/template"

var homepageTmpl = template.Must(template.New("home").Parse(`<html>
<head><title>Cgroups Exporter</title></head>
<body>
<h1>Cgroups Exporter</h1>
<p><a href="{{.MetricsPath}}">Metrics</a></p>
</body>
</html>
`))

type homepageData struct {
	MetricsPath string
}
