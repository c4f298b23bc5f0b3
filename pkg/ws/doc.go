// Package ws предоставляет WebSocket транспорт для hub.HubConnection.
//
// Транспорт не знает о протоколе хаба: каждый текстовый фрейм целиком
// передается в callback, установленный через SetOnReceive. Разбиение на
// записи по разделителю U+001E выполняет hub.
//
// # Обычный клиент
//
//	transport := ws.NewTransport(ws.DefaultTransportConfig("ws://localhost:8080/hub"))
//	conn := hub.NewHubConnection(transport, hub.DefaultConnectionConfig())
//	conn.On("message", func(args hub.Arguments) { ... })
//	if err := conn.Start(ctx); err != nil { ... }
//
// # Защищенный клиент (wss://)
//
// TLS конфигурация загружается из переменных окружения:
//
//	HUB_TLS_CERT - клиентский сертификат в base64 (вместе с HUB_TLS_KEY)
//	HUB_TLS_KEY  - приватный ключ в base64
//	HUB_TLS_CA   - CA сертификат в base64
//
//	tlsCfg, err := ws.TLSConfigFromEnv()
//	cfg := ws.DefaultTransportConfig("wss://hub.local/hub")
//	cfg.TLS = tlsCfg
//	transport := ws.NewTransport(cfg)
//
// # Завершение
//
// Done закрывается при остановке транспорта: по Stop, при закрытии
// соединения сервером или если callback вернул ошибку. Причина доступна
// через Err.
package ws
