package dgc

// Sample certificates used by the /qrc endpoints and the conformance suite.
const (
	SampleVaccination = `{
  "ver": "1.2.1",
  "nam": {"fn": "Musterfrau-Gößinger", "fnt": "MUSTERFRAU<GOESSINGER", "gn": "Gabriele", "gnt": "GABRIELE"},
  "dob": "1998-02-26",
  "v": [{
    "tg": "840539006", "vp": "1119349007", "mp": "EU/1/20/1528", "ma": "ORG-100030215",
    "dn": 1, "sd": 2, "dt": "2021-02-18", "co": "AT",
    "is": "Ministry of Health, Austria", "ci": "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B"
  }]
}`

	SampleRecovery = `{
  "ver": "1.2.1",
  "nam": {"fn": "Musterfrau-Gößinger", "fnt": "MUSTERFRAU<GOESSINGER", "gn": "Gabriele", "gnt": "GABRIELE"},
  "dob": "1998-02-26",
  "r": [{
    "tg": "840539006", "fr": "2021-02-20", "co": "AT", "is": "Ministry of Health, Austria",
    "df": "2021-04-04", "du": "2021-10-04", "ci": "URN:UVCI:01:AT:858CC18CFCF5965EF82F60E493349AA5#K"
  }]
}`

	SampleTest = `{
  "ver": "1.2.1",
  "nam": {"fn": "Musterfrau-Gößinger", "fnt": "MUSTERFRAU<GOESSINGER", "gn": "Gabriele", "gnt": "GABRIELE"},
  "dob": "1998-02-26",
  "t": [{
    "tg": "840539006", "tt": "LP6464-4", "nm": "Roche LightCycler qPCR",
    "sc": "2021-02-20T12:34:56Z", "tr": "260415000", "tc": "Testing center Vienna 1",
    "co": "AT", "is": "Ministry of Health, Austria", "ci": "URN:UVCI:01:AT:71EE2559DE38C6BF7304FB65A1A451EC#3"
  }]
}`
)

// Samples maps the sample names exposed over HTTP to their JSON
var Samples = map[string]string{
	"vaccination": SampleVaccination,
	"recovery":    SampleRecovery,
	"test":        SampleTest,
}

// MustParseSample parses one of the built-in samples and panics on failure
func MustParseSample(name string) *HealthCertificate {
	data, ok := Samples[name]
	if !ok {
		panic("dgc: unknown sample " + name)
	}
	cert, err := ParseJSON([]byte(data))
	if err != nil {
		panic("dgc: invalid sample " + name + ": " + err.Error())
	}
	return cert
}
