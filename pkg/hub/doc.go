// Package hub реализует клиентскую сторону постоянной двунаправленной RPC-сессии
// (hub connection) поверх абстрактного транспорта:
//   - Handshake с согласованием протокола и версии
//   - Разбор записей, разделенных символом U+001E
//   - Маршрутизацию вызовов сервера на зарегистрированные обработчики
//   - Уведомление наблюдателей о закрытии соединения
//
// # Клиент
//
//	transport := ws.NewTransport(ws.DefaultTransportConfig("ws://localhost:8080/chat"))
//	conn := hub.NewHubConnection(transport, hub.DefaultConnectionConfig())
//
//	conn.On("message", func(args hub.Arguments) {
//	    var user, text string
//	    if err := args.Bind(&user, &text); err != nil {
//	        return
//	    }
//	    fmt.Println(user, text)
//	})
//	conn.OnClosed(func(err error) { ... })
//
//	if err := conn.Start(ctx); err != nil { ... }
//	conn.Send(ctx, "broadcast", "alice", "hello")
//
// # Порядок запуска
//
// Start переводит соединение в Connected сразу после отправки handshake-запроса.
// Ответ сервера проверяется при первом вызове Receive; если сервер отклонил
// протокол, соединение закрывается, а Receive возвращает ErrHandshake.
// С ConnectionConfig.AwaitHandshake Start ждет ответа и возвращает ошибку сам.
//
// # Протокол сообщений
//
//	{"protocol":"json","version":1}\x1e              handshake-запрос
//	{}\x1e                                           handshake-ответ
//	{"type":1,"target":"message","arguments":[...]}\x1e
//	{"type":6}\x1e                                   ping
//	{"type":7,"error":"..."}\x1e                     close
//
// Стримы (2, 4), completion (3) и отмена (5) не поддерживаются: Receive
// возвращает UnsupportedMessageError.
package hub
