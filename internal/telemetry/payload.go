package telemetry

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pulse/internal/apperr"
	"pulse/internal/models"
)

// Payload — нормализованный вход ингеста. Отсутствующее значение поля — это
// nil, а не ноль: частично заполненные записи ожидаемы.
type Payload struct {
	Fields    [models.MaxFields]*float64
	Latitude  *float64
	Longitude *float64
	Elevation *float64
	Status    string
}

// parseNumber: пустая строка/отсутствие -> nil, мусор -> ValidationError.
// Молча приводить мусор к "отсутствует" нельзя — это скрывает ошибку девайса.
func parseNumber(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not numeric", apperr.ErrValidation, name)
	}
	return &v, nil
}

// PayloadFromQuery разбирает query-string вызов от простого устройства:
// field1..field8, lat, lon, elevation, status.
func PayloadFromQuery(q url.Values) (Payload, error) {
	var p Payload
	var err error
	for i := 1; i <= models.MaxFields; i++ {
		name := fmt.Sprintf("field%d", i)
		if p.Fields[i-1], err = parseNumber(name, q.Get(name)); err != nil {
			return Payload{}, err
		}
	}
	if p.Latitude, err = parseNumber("lat", q.Get("lat")); err != nil {
		return Payload{}, err
	}
	if p.Longitude, err = parseNumber("lon", q.Get("lon")); err != nil {
		return Payload{}, err
	}
	if p.Elevation, err = parseNumber("elevation", q.Get("elevation")); err != nil {
		return Payload{}, err
	}
	p.Status = q.Get("status")
	return p, nil
}

// PayloadFromBody разбирает JSON-тело. Числа принимаем и как number, и как
// строку — оба транспорта обязаны давать одно и то же хранимое представление.
func PayloadFromBody(body map[string]json.RawMessage) (Payload, error) {
	var p Payload
	var err error
	for i := 1; i <= models.MaxFields; i++ {
		name := fmt.Sprintf("field%d", i)
		if p.Fields[i-1], err = parseJSONNumber(name, body[name]); err != nil {
			return Payload{}, err
		}
	}
	if p.Latitude, err = parseJSONNumber("lat", body["lat"]); err != nil {
		return Payload{}, err
	}
	if p.Longitude, err = parseJSONNumber("lon", body["lon"]); err != nil {
		return Payload{}, err
	}
	if p.Elevation, err = parseJSONNumber("elevation", body["elevation"]); err != nil {
		return Payload{}, err
	}
	if raw, ok := body["status"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Payload{}, fmt.Errorf("%w: status must be a string", apperr.ErrValidation)
		}
		p.Status = s
	}
	return p, nil
}

func parseJSONNumber(name string, raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	// строковое значение разворачиваем и гоним через общий парсер,
	// чтобы query и body нормализовались одинаково
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %s is not numeric", apperr.ErrValidation, name)
		}
		return parseNumber(name, s)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s is not numeric", apperr.ErrValidation, name)
	}
	return &v, nil
}
