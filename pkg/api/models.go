package api

import "github.com/rubiojr/gasrank/pkg/geo"

// GasStationList represents the response structure from the fuel price API.
type GasStationList struct {
	Fecha             string       `json:"Fecha"`
	ListaEESSPrecio   []GasStation `json:"ListaEESSPrecio"`
	Nota              string       `json:"Nota"`
	ResultadoConsulta string       `json:"ResultadoConsulta"`
}

// GasStation represents a single fuel station and its price information.
type GasStation struct {
	CP                      string `json:"C.P."`
	Direccion               string `json:"Dirección"`
	Horario                 string `json:"Horario"`
	Latitud                 string `json:"Latitud"`
	Localidad               string `json:"Localidad"`
	Longitud                string `json:"Longitud (WGS84)"`
	Margen                  string `json:"Margen"`
	Municipio               string `json:"Municipio"`
	PrecioBiodiesel         string `json:"Precio Biodiesel"`
	PrecioBioetanol         string `json:"Precio Bioetanol"`
	PrecioGasNaturalComp    string `json:"Precio Gas Natural Comprimido"`
	PrecioGasNaturalLicuado string `json:"Precio Gas Natural Licuado"`
	PrecioGasesLicuados     string `json:"Precio Gases licuados del petróleo"`
	PrecioGasoleoA          string `json:"Precio Gasoleo A"`
	PrecioGasoleoB          string `json:"Precio Gasoleo B"`
	PrecioGasoleoPremium    string `json:"Precio Gasoleo Premium"`
	PrecioGasolina95E10     string `json:"Precio Gasolina 95 E10"`
	PrecioGasolina95E5      string `json:"Precio Gasolina 95 E5"`
	PrecioGasolina95E5Prem  string `json:"Precio Gasolina 95 E5 Premium"`
	PrecioGasolina98E10     string `json:"Precio Gasolina 98 E10"`
	PrecioGasolina98E5      string `json:"Precio Gasolina 98 E5"`
	PrecioHidrogeno         string `json:"Precio Hidrogeno"`
	Provincia               string `json:"Provincia"`
	Remision                string `json:"Remisión"`
	Rotulo                  string `json:"Rótulo"`
	TipoVenta               string `json:"Tipo Venta"`
	PorcentajeBioEtanol     string `json:"% BioEtanol"`
	PorcentajeEsterMetilico string `json:"% Éster metílico"`
	IDEESS                  string `json:"IDEESS"`
	IDMunicipio             string `json:"IDMunicipio"`
	IDProvincia             string `json:"IDProvincia"`
	IDCCAA                  string `json:"IDCCAA"`
}

// Stations converts every record in the list to a geo.Station.
func (l *GasStationList) Stations() []geo.Station {
	stations := make([]geo.Station, len(l.ListaEESSPrecio))
	for i := range l.ListaEESSPrecio {
		stations[i] = l.ListaEESSPrecio[i].ToStation()
	}
	return stations
}

// ToStation converts the provider record to a geo.Station. Coordinates are
// carried over untouched; prices the provider left empty or unparseable
// are omitted.
func (s *GasStation) ToStation() geo.Station {
	station := geo.Station{
		ID:           s.IDEESS,
		Name:         s.Rotulo,
		Address:      s.Direccion,
		Locality:     s.Localidad,
		Municipality: s.Municipio,
		Province:     s.Provincia,
		PostalCode:   s.CP,
		Schedule:     s.Horario,
		Latitude:     s.Latitud,
		Longitude:    s.Longitud,
		Prices:       make(map[geo.Fuel]float64),
	}

	for fuel, raw := range s.rawPrices() {
		price, err := geo.ParseDecimal(raw)
		if err != nil || price <= 0 {
			continue
		}
		station.Prices[fuel] = price
	}
	return station
}

// RawPrice returns the provider's price string for fuel.
func (s *GasStation) RawPrice(fuel geo.Fuel) string {
	return s.rawPrices()[fuel]
}

func (s *GasStation) rawPrices() map[geo.Fuel]string {
	return map[geo.Fuel]string{
		geo.Gasoline95:        s.PrecioGasolina95E5,
		geo.Gasoline95E10:     s.PrecioGasolina95E10,
		geo.Gasoline95Premium: s.PrecioGasolina95E5Prem,
		geo.Gasoline98:        s.PrecioGasolina98E5,
		geo.Gasoline98E10:     s.PrecioGasolina98E10,
		geo.DieselA:           s.PrecioGasoleoA,
		geo.DieselB:           s.PrecioGasoleoB,
		geo.DieselPremium:     s.PrecioGasoleoPremium,
		geo.Biodiesel:         s.PrecioBiodiesel,
		geo.Bioethanol:        s.PrecioBioetanol,
		geo.LPG:               s.PrecioGasesLicuados,
		geo.CNG:               s.PrecioGasNaturalComp,
		geo.LNG:               s.PrecioGasNaturalLicuado,
		geo.Hydrogen:          s.PrecioHidrogeno,
	}
}
