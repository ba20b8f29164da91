package types

// Weather is a reading from the outside weather sensor.
type Weather struct {
	SensorID    string  `json:"sensorID"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}
