package forecast

import (
	"github.com/vendimia/forecast-backend/internal/insights"
	"github.com/vendimia/forecast-backend/internal/predictions"
	"github.com/vendimia/forecast-backend/internal/sales"
	"github.com/vendimia/forecast-backend/internal/timeseries"
)

const (
	msgModelTrained  = "Modelo entrenado correctamente"
	msgModelsTrained = "Modelos de producto entrenados correctamente"
	msgNoSalesData   = "No hay datos de ventas para este cliente"
	msgNoPredictions = "No hay predicciones disponibles para este cliente"
	msgNoRecentSales = "No hay ventas recientes para este cliente"
)

type trainResponse struct {
	Mensaje       string `json:"mensaje"`
	Observaciones int    `json:"observaciones,omitempty"`
}

type productTrainingResponse struct {
	ProductoID    string `json:"producto_id"`
	Titulo        string `json:"titulo"`
	Observaciones int    `json:"observaciones"`
}

type productTrainResponse struct {
	Mensaje   string                    `json:"mensaje"`
	Productos []productTrainingResponse `json:"productos,omitempty"`
	Omitidos  int                       `json:"omitidos,omitempty"`
}

type observedPoint struct {
	Fecha      string  `json:"fecha"`
	VentaTotal float64 `json:"venta_total"`
}

type predictedPoint struct {
	Fecha              string  `json:"fecha"`
	VentaTotalPredicho float64 `json:"venta_total_predicho"`
}

type generalPredictResponse struct {
	Mensaje        string           `json:"mensaje,omitempty"`
	Historial      []observedPoint  `json:"historial"`
	Predicciones   []predictedPoint `json:"predicciones"`
	DiasHistorial  int              `json:"dias_historial"`
	DiasPrediccion int              `json:"dias_prediccion"`
}

type productPoint struct {
	Fecha      string  `json:"fecha"`
	Prediccion float64 `json:"prediccion"`
}

type productHistoryPoint struct {
	Fecha        string  `json:"fecha"`
	MontoVendido float64 `json:"monto_vendido"`
}

type productForecastResponse struct {
	ProductoID   string                `json:"producto_id"`
	Titulo       string                `json:"titulo"`
	Historial    []productHistoryPoint `json:"historial,omitempty"`
	Predicciones []productPoint        `json:"predicciones"`
}

type productPredictResponse struct {
	Mensaje        string                    `json:"mensaje,omitempty"`
	Productos      []productForecastResponse `json:"productos"`
	DiasPrediccion int                       `json:"dias_prediccion"`
}

type recentSaleDay struct {
	Fecha          string  `json:"fecha"`
	CantidadVentas int     `json:"cantidad_ventas"`
	MontoVendido   float64 `json:"monto_vendido"`
	TicketPromedio float64 `json:"ticket_promedio"`
}

type recentSalesResponse struct {
	Mensaje string          `json:"mensaje,omitempty"`
	Ventas  []recentSaleDay `json:"ventas"`
}

type summaryResponse struct {
	Mensaje        string  `json:"mensaje,omitempty"`
	DiasHistorial  int     `json:"dias_historial"`
	DiasPrediccion int     `json:"dias_prediccion"`
	VentaMaxima    float64 `json:"venta_maxima"`
	FechaMaxima    string  `json:"fecha_maxima"`
	VentaMinima    float64 `json:"venta_minima"`
	FechaMinima    string  `json:"fecha_minima"`
}

type trendAlertResponse struct {
	Alerta    bool    `json:"alerta"`
	Detalle   string  `json:"detalle"`
	Desde     string  `json:"desde,omitempty"`
	Hasta     string  `json:"hasta,omitempty"`
	Variacion float64 `json:"variacion"`
}

func toObservedPoints(series timeseries.Series) []observedPoint {
	out := make([]observedPoint, 0, len(series))
	for _, p := range series {
		out = append(out, observedPoint{
			Fecha:      p.Date.Format(timeseries.DateFormat),
			VentaTotal: p.Value,
		})
	}
	return out
}

func toPredictedPoints(series timeseries.Series) []predictedPoint {
	out := make([]predictedPoint, 0, len(series))
	for _, p := range series {
		out = append(out, predictedPoint{
			Fecha:              p.Date.Format(timeseries.DateFormat),
			VentaTotalPredicho: p.Value,
		})
	}
	return out
}

func toProductHistoryPoints(series timeseries.Series) []productHistoryPoint {
	if len(series) == 0 {
		return nil
	}
	out := make([]productHistoryPoint, 0, len(series))
	for _, p := range series {
		out = append(out, productHistoryPoint{
			Fecha:        p.Date.Format(timeseries.DateFormat),
			MontoVendido: p.Value,
		})
	}
	return out
}

func toProductPoints(series timeseries.Series) []productPoint {
	out := make([]productPoint, 0, len(series))
	for _, p := range series {
		out = append(out, productPoint{
			Fecha:      p.Date.Format(timeseries.DateFormat),
			Prediccion: p.Value,
		})
	}
	return out
}

func toGeneralPredictResponse(result predictions.PredictResult) generalPredictResponse {
	resp := generalPredictResponse{
		Historial:      toObservedPoints(result.History),
		Predicciones:   toPredictedPoints(result.Predictions),
		DiasHistorial:  result.HistoryDays,
		DiasPrediccion: result.HorizonDays,
	}
	if len(resp.Historial) == 0 {
		resp.Mensaje = msgNoSalesData
	}
	return resp
}

func toProductTrainResponse(result predictions.ProductTrainResult) productTrainResponse {
	if result.NoData {
		return productTrainResponse{Mensaje: msgNoSalesData, Omitidos: result.Skipped}
	}
	resp := productTrainResponse{Mensaje: msgModelsTrained, Omitidos: result.Skipped}
	for _, trained := range result.Trained {
		resp.Productos = append(resp.Productos, productTrainingResponse{
			ProductoID:    trained.ProductID.String(),
			Titulo:        trained.Title,
			Observaciones: trained.Observations,
		})
	}
	return resp
}

func toProductPredictResponse(result predictions.ProductPredictResult) productPredictResponse {
	resp := productPredictResponse{
		Productos:      []productForecastResponse{},
		DiasPrediccion: result.HorizonDays,
	}
	if result.NoData {
		resp.Mensaje = msgNoSalesData
		return resp
	}
	for _, pf := range result.Products {
		resp.Productos = append(resp.Productos, productForecastResponse{
			ProductoID:   pf.ProductID.String(),
			Titulo:       pf.Title,
			Historial:    toProductHistoryPoints(pf.History),
			Predicciones: toProductPoints(pf.Predictions),
		})
	}
	return resp
}

func toRecentSalesResponse(days []sales.DailySummary) recentSalesResponse {
	resp := recentSalesResponse{Ventas: []recentSaleDay{}}
	if len(days) == 0 {
		resp.Mensaje = msgNoRecentSales
		return resp
	}
	for _, d := range days {
		resp.Ventas = append(resp.Ventas, recentSaleDay{
			Fecha:          d.Date.Format(timeseries.DateFormat),
			CantidadVentas: d.Count,
			MontoVendido:   d.Total,
			TicketPromedio: d.AvgTicket,
		})
	}
	return resp
}

func toSummaryResponse(summary insights.Summary) summaryResponse {
	if summary.Empty {
		return summaryResponse{
			Mensaje:        msgNoPredictions,
			DiasHistorial:  summary.HistoryDays,
			DiasPrediccion: summary.HorizonDays,
		}
	}
	return summaryResponse{
		DiasHistorial:  summary.HistoryDays,
		DiasPrediccion: summary.HorizonDays,
		VentaMaxima:    summary.MaxValue,
		FechaMaxima:    summary.MaxDate,
		VentaMinima:    summary.MinValue,
		FechaMinima:    summary.MinDate,
	}
}

func toTrendAlertResponse(alert insights.TrendAlert) trendAlertResponse {
	return trendAlertResponse{
		Alerta:    alert.Alert,
		Detalle:   alert.Detail,
		Desde:     alert.From,
		Hasta:     alert.To,
		Variacion: alert.Slope,
	}
}
