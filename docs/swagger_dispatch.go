package docs

// @title           Gothenburg Taxi Real-time Dispatch API
// @version         1.0
// @description     Real-time dispatch service for shared taxi trips. Tracks connected drivers and passengers over WebSocket, groups compatible bookings into shared trips and relays trip lifecycle updates.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3001
// @BasePath  /
