package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate.
//
// @title           visiond API
// @version         0.1
// @description     HTTP API for local vision-language model provisioning and streaming generation.
//
// @contact.name   visiond maintainers
// @contact.url    https://github.com/your-org/visiond
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
