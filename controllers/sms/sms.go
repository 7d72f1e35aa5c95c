package sms

import (
	"errors"
	"strings"

	smsService "github.com/VersatileFusion/sangshekkan/httpServices/sms"
	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/types"
	smsTypes "github.com/VersatileFusion/sangshekkan/types/sms"
	"github.com/VersatileFusion/sangshekkan/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgSent             = "پیامک با موفقیت ارسال شد"
	MsgInvalidPayload   = "اطلاعات ارسالی نامعتبر است"
	MsgInvalidPhone     = "فرمت شماره موبایل معتبر نیست"
	MsgTemplateNotFound = "قالب پیامک یافت نشد"
	MsgMissingVariables = "مقادیر لازم برای قالب پیامک ارسال نشده است: "
	MsgSMSFailed        = "ارسال پیامک ناموفق بود"
)

// SMSController exposes the template catalogue and manual sends to admins.
type SMSController struct {
	service *smsService.SMSService
}

func NewSMSController(service *smsService.SMSService) *SMSController {
	return &SMSController{service: service}
}

// Templates lists the catalogue rendered with sample values. ?purpose= narrows
// the list to one purpose tag.
func (sc *SMSController) Templates(c *fiber.Ctx) error {
	catalogue := sc.service.Templates()
	all := catalogue.All()
	if purpose := strings.TrimSpace(c.Query("purpose")); purpose != "" {
		all = catalogue.ByPurpose(purpose)
	}

	views := make([]smsTypes.TemplateView, 0, len(all))
	for _, tpl := range all {
		preview, err := catalogue.Preview(tpl.Key)
		if err != nil {
			logger.Error("Failed to preview template "+tpl.Key, err)
			continue
		}
		views = append(views, smsTypes.TemplateView{
			Key:       tpl.Key,
			ID:        tpl.ID,
			Name:      tpl.Name,
			Purpose:   tpl.Purpose,
			Variables: tpl.Variables,
			Template:  tpl.Body,
			Preview:   preview,
		})
	}
	return c.Status(fiber.StatusOK).JSON(smsTypes.TemplatesResponse{Templates: views})
}

// Send renders a template for one phone and delivers it through the retrying service
func (sc *SMSController) Send(c *fiber.Ctx) error {
	var req smsTypes.SendSMSRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse SMS send body: " + err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidPayload, ErrorCode: "VALIDATION_ERROR"})
	}
	if err := req.Validate(); err != nil {
		logger.Info("Rejected SMS send: " + err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidPayload, ErrorCode: "VALIDATION_ERROR"})
	}
	if !utils.ValidatePhoneNumber(req.Phone) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidPhone, ErrorCode: "VALIDATION_ERROR"})
	}
	phone := utils.NormalizePhone(req.Phone)

	err := sc.service.SendTemplate(c.UserContext(), phone, req.TemplateKey, req.Variables)
	var missing *smsService.MissingVariablesError
	switch {
	case err == nil:
	case errors.Is(err, smsService.ErrTemplateNotFound):
		return c.Status(fiber.StatusNotFound).JSON(types.ErrorResponse{Error: MsgTemplateNotFound, ErrorCode: "TEMPLATE_NOT_FOUND"})
	case errors.As(err, &missing):
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
			Error:     MsgMissingVariables + strings.Join(missing.Missing, "، "),
			ErrorCode: "MISSING_VARIABLES",
		})
	default:
		logger.Error("Admin SMS to "+utils.MaskPhone(phone)+" failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: MsgSMSFailed, ErrorCode: "SMS_FAILED"})
	}

	return c.Status(fiber.StatusOK).JSON(smsTypes.SendSMSResponse{Message: MsgSent, Phone: phone})
}
