package assets

import _ "embed"

// Static client bundle, compiled into the binary at build time.

//go:embed index.html
var IndexHTML []byte

//go:embed signals.js
var SignalsJS []byte

//go:embed dashboard.html
var DashboardHTML []byte

//go:embed dashboard.js
var DashboardJS []byte
