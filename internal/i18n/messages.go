package i18n

import (
	"strconv"
	"strings"
)

var catalogs = map[string]map[string]string{
	"es": {
		"register.email":           "Registro exitoso. Revisa tu email para verificar tu cuenta.",
		"register.phone":           "Registro exitoso. Te enviamos un SMS con tu código de verificación.",
		"register.no_verification": "Usuario registrado correctamente.",
		"register.conflict_email":  "Ya existe una cuenta con ese email.",
		"register.conflict_phone":  "Ya existe una cuenta con ese teléfono.",
		"register.invalid_role":    "El rol especificado no existe. Usa 1 (coach) o 2 (client).",
		"register.too_many":        "Demasiados registros desde tu red. Intenta más tarde.",

		"validation.failed":       "Los datos enviados no son válidos.",
		"validation.required":     "Este campo es obligatorio.",
		"validation.email":        "El email no tiene un formato válido.",
		"validation.phone":        "El teléfono no tiene un formato válido.",
		"validation.password_min": "La contraseña debe tener al menos 6 caracteres.",
		"validation.one_channel":  "Envía un email o un teléfono, no ambos.",
		"validation.code":         "El código debe tener 6 dígitos.",
		"validation.no_changes":   "Envía al menos un campo para actualizar.",

		"account.not_found": "El usuario no existe.",
		"account.status":    "Estatus de la cuenta actualizado.",
		"account.profile":   "Perfil del usuario.",
		"account.created":   "Usuario creado correctamente.",
		"account.updated":   "Usuario actualizado correctamente.",

		"verify.success":     "Cuenta verificada correctamente. Ya puedes iniciar sesión.",
		"verify.expired":     "El código expiró. Solicita uno nuevo.",
		"verify.mismatch":    "El código es incorrecto.",
		"verify.already":     "Esta cuenta ya está verificada.",
		"verify.too_many":    "Demasiados intentos de verificación. Intenta más tarde.",
		"resend.email":       "Se envió un nuevo código a tu email.",
		"resend.phone":       "Se envió un nuevo código a tu teléfono.",
		"code.cooldown":      "Espera {seconds} segundos antes de solicitar otro código.",
		"login.success":      "Inicio de sesión exitoso.",
		"login.invalid":      "El email o contraseña son inválidos.",
		"login.not_verified": "Tu cuenta no está verificada. Revisa tu email.",
		"login.disabled":     "Tu cuenta está desactivada. Contacta al administrador.",
		"login.banned":       "Demasiados intentos fallidos. Intenta más tarde.",

		"token.missing":      "No enviaste un token.",
		"token.invalid_type": "Solo se acepta un token de tipo Bearer.",
		"token.invalid":      "Token inválido.",
		"token.refreshed":    "Token renovado correctamente.",
		"auth.forbidden":     "No tienes permiso para realizar esta acción.",

		"reset.email":          "Te enviamos un código a tu email para cambiar tu contraseña.",
		"reset.phone":          "Te enviamos un código por SMS para cambiar tu contraseña.",
		"reset.code_not_found": "No hay un código vigente. Solicita uno nuevo.",
		"reset.code_incorrect": "El código es incorrecto. Solicita uno nuevo.",
		"reset.success":        "Contraseña actualizada correctamente.",

		"server.internal": "Hubo un error al procesar la solicitud.",
		"server.json":     "El cuerpo JSON es inválido, verifícalo.",

		"code.verify.subject": "Verifica tu cuenta de CoachFit",
		"code.verify.body": "Hola, {name}.\n\nGracias por registrarte en CoachFit.\n" +
			"Tu código de verificación es: {code}\n\n" +
			"Este código expira en {minutes} minutos.\n" +
			"Si no creaste esta cuenta, ignora este mensaje.",
		"code.verify.sms":    "Tu código de verificación de CoachFit es {code}. Expira en {minutes} minutos.",
		"code.reset.subject": "Cambia tu contraseña de CoachFit",
		"code.reset.body": "Hola, {name}.\n\n" +
			"Tu código para cambiar la contraseña es: {code}\n\n" +
			"Este código expira en {minutes} minutos.\n" +
			"Si no lo solicitaste, ignora este mensaje.",
		"code.reset.sms": "Tu código para cambiar la contraseña de CoachFit es {code}. Expira en {minutes} minutos.",
	},
	"en": {
		"register.email":           "Registration successful. Check your email to verify your account.",
		"register.phone":           "Registration successful. We sent you an SMS with your verification code.",
		"register.no_verification": "User registered successfully.",
		"register.conflict_email":  "An account with this email already exists.",
		"register.conflict_phone":  "An account with this phone already exists.",
		"register.invalid_role":    "The given role does not exist. Use 1 (coach) or 2 (client).",
		"register.too_many":        "Too many sign-ups from your network. Try again later.",

		"validation.failed":       "The submitted data is invalid.",
		"validation.required":     "This field is required.",
		"validation.email":        "The email address is not valid.",
		"validation.phone":        "The phone number is not valid.",
		"validation.password_min": "The password must be at least 6 characters long.",
		"validation.one_channel":  "Send an email or a phone number, not both.",
		"validation.code":         "The code must have 6 digits.",
		"validation.no_changes":   "Send at least one field to update.",

		"account.not_found": "The user does not exist.",
		"account.status":    "Account status updated.",
		"account.profile":   "User profile.",
		"account.created":   "User created successfully.",
		"account.updated":   "User updated successfully.",

		"verify.success":     "Account verified. You can now sign in.",
		"verify.expired":     "The code has expired. Request a new one.",
		"verify.mismatch":    "The code is incorrect.",
		"verify.already":     "This account is already verified.",
		"verify.too_many":    "Too many verification attempts. Try again later.",
		"resend.email":       "A new code was sent to your email.",
		"resend.phone":       "A new code was sent to your phone.",
		"code.cooldown":      "Wait {seconds} seconds before requesting another code.",
		"login.success":      "Signed in successfully.",
		"login.invalid":      "The email or password is invalid.",
		"login.not_verified": "Your account is not verified. Check your email.",
		"login.disabled":     "Your account is disabled. Contact the administrator.",
		"login.banned":       "Too many failed attempts. Try again later.",

		"token.missing":      "No token was sent.",
		"token.invalid_type": "Only bearer tokens are accepted.",
		"token.invalid":      "Invalid token.",
		"token.refreshed":    "Token refreshed successfully.",
		"auth.forbidden":     "You are not allowed to perform this action.",

		"reset.email":          "We sent a code to your email to change your password.",
		"reset.phone":          "We sent a code by SMS to change your password.",
		"reset.code_not_found": "There is no active code. Request a new one.",
		"reset.code_incorrect": "The code is incorrect. Request a new one.",
		"reset.success":        "Password updated successfully.",

		"server.internal": "There was an error processing the request.",
		"server.json":     "JSON body invalid, please verify.",

		"code.verify.subject": "Verify your CoachFit account",
		"code.verify.body": "Hi {name},\n\nThanks for signing up to CoachFit.\n" +
			"Your verification code is: {code}\n\n" +
			"This code expires in {minutes} minutes.\n" +
			"If you did not create this account, ignore this message.",
		"code.verify.sms":    "Your CoachFit verification code is {code}. It expires in {minutes} minutes.",
		"code.reset.subject": "Change your CoachFit password",
		"code.reset.body": "Hi {name},\n\n" +
			"Your password change code is: {code}\n\n" +
			"This code expires in {minutes} minutes.\n" +
			"If you did not request it, ignore this message.",
		"code.reset.sms": "Your CoachFit password change code is {code}. It expires in {minutes} minutes.",
	},
}

// T returns the message for key in locale, falling back to the default
// locale and finally to the key itself.
func T(locale, key string) string {
	if msgs, ok := catalogs[locale]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := catalogs[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Tf is T with {name} placeholders substituted from vars.
func Tf(locale, key string, vars map[string]string) string {
	msg := T(locale, key)
	if len(vars) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

type EmailContent struct {
	Subject string
	Text    string
}

// CodeEmail renders the email carrying a one-time code. purpose is "verify"
// or "reset_password".
func CodeEmail(locale, purpose, name, code string, minutes int) EmailContent {
	prefix := codePrefix(purpose)
	vars := map[string]string{
		"name":    name,
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	}
	return EmailContent{
		Subject: T(locale, prefix+".subject"),
		Text:    Tf(locale, prefix+".body", vars),
	}
}

func CodeSMS(locale, purpose, code string, minutes int) string {
	return Tf(locale, codePrefix(purpose)+".sms", map[string]string{
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	})
}

func codePrefix(purpose string) string {
	if purpose == "reset_password" {
		return "code.reset"
	}
	return "code.verify"
}
